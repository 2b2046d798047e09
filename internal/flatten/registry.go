// SPDX-License-Identifier: MPL-2.0

package flatten

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nuclearfarts/jijflattener/pkg/version"
)

type (
	// Handle locates one physical copy of a mod archive in the work area.
	Handle struct {
		// Path is the archive's location in the work directory.
		Path string
		// Embedded is true when the archive was found inside another archive.
		Embedded bool
		// Origin is the nesting chain: the top-level file name followed by the
		// entry name at each embedding level.
		Origin []string
	}

	// Candidate is one observed occurrence of a mod.
	Candidate struct {
		ID      string
		Version version.Value
		Archive Handle
	}

	// Registry tracks, per mod identifier, the winning embedded candidate and
	// any explicit (top-level) candidate. A Registry lives for one flatten
	// run and is not safe for concurrent use.
	Registry struct {
		logger       *log.Logger
		embeddedBest map[string]Candidate
		explicit     map[string]Candidate
		seen         map[string]int // id -> number of candidates observed
	}
)

// OriginString renders the nesting chain as "a.jar!/META-INF/jars/b.jar".
func (h Handle) OriginString() string {
	return strings.Join(h.Origin, "!/")
}

// NewRegistry returns an empty registry. A nil logger discards diagnostics.
func NewRegistry(logger *log.Logger) *Registry {
	return &Registry{
		logger:       orDiscard(logger),
		embeddedBest: make(map[string]Candidate),
		explicit:     make(map[string]Candidate),
		seen:         make(map[string]int),
	}
}

// RegisterExplicit records a top-level candidate. A later explicit candidate
// for the same identifier replaces the earlier one: the last listed archive
// wins, regardless of version.
func (r *Registry) RegisterExplicit(c Candidate) {
	r.seen[c.ID]++
	if prev, ok := r.explicit[c.ID]; ok {
		r.logger.Info("explicit mod replaced by a later top-level archive",
			"id", c.ID, "previous", prev.Archive.OriginString(), "current", c.Archive.OriginString())
	}
	r.explicit[c.ID] = c
}

// RegisterEmbedded records an embedded candidate and reports whether it is
// now the best embedded candidate for its identifier. It returns false when
// an explicit candidate exists or when the current best ranks strictly
// higher. Equal ranks go to the newer candidate.
func (r *Registry) RegisterEmbedded(c Candidate) bool {
	r.seen[c.ID]++

	if ex, ok := r.explicit[c.ID]; ok {
		r.logger.Debug("embedded mod overridden by explicit archive",
			"id", c.ID, "embedded", c.Archive.OriginString(), "explicit", ex.Archive.OriginString())
		return false
	}

	best, ok := r.embeddedBest[c.ID]
	if !ok {
		r.embeddedBest[c.ID] = c
		return true
	}

	if version.Ambiguous(c.Version, best.Version) {
		r.logger.Warn("neither version is semantic; resolution may not match the mod loader",
			"id", c.ID,
			"a", fmt.Sprintf("%s (%s)", c.Version, c.Archive.OriginString()),
			"b", fmt.Sprintf("%s (%s)", best.Version, best.Archive.OriginString()))
	}

	if version.Compare(c.Version, best.Version) >= 0 {
		r.embeddedBest[c.ID] = c
		return true
	}
	return false
}

// Resolve returns the winning candidate for id: the explicit candidate when
// there is one, otherwise the best embedded candidate.
func (r *Registry) Resolve(id string) (Candidate, error) {
	if c, ok := r.explicit[id]; ok {
		return c, nil
	}
	if c, ok := r.embeddedBest[id]; ok {
		return c, nil
	}
	return Candidate{}, fmt.Errorf("%q: %w", id, ErrUnresolved)
}

// Seen returns every registered identifier in sorted order.
func (r *Registry) Seen() []string {
	return slices.Sorted(maps.Keys(r.seen))
}

// Observations returns how many candidates were registered for id.
func (r *Registry) Observations(id string) int {
	return r.seen[id]
}
