// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

var allIds = []Id{
	InputNotFoundId,
	ManifestInvalidId,
	VersionUnparseableId,
	ArchiveIOId,
	UsageId,
	ConfigLoadFailedId,
	ReportWriteFailedId,
	PermissionDeniedId,
}

func stubRender(t *testing.T) {
	t.Helper()

	original := render
	t.Cleanup(func() { render = original })
	render = func(in string, _ string) (string, error) {
		return in, nil
	}
}

func TestId_Constants(t *testing.T) {
	t.Parallel()

	seen := make(map[Id]bool)
	for _, id := range allIds {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	if InputNotFoundId != 1 {
		t.Errorf("InputNotFoundId = %d, want 1", InputNotFoundId)
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id      Id
		wantNil bool
		want    string
	}{
		{InputNotFoundId, false, "Input directory not found"},
		{ManifestInvalidId, false, "fabric.mod.json"},
		{VersionUnparseableId, false, "version"},
		{ArchiveIOId, false, "zip archive"},
		{UsageId, false, "<input> [output] [work directory]"},
		{ConfigLoadFailedId, false, "jijflattener config init"},
		{ReportWriteFailedId, false, ".toml"},
		{PermissionDeniedId, false, "Permission denied"},
		{Id(0), true, ""},
		{Id(9999), true, ""},
	}

	for _, tt := range tests {
		issue := Get(tt.id)
		if tt.wantNil {
			if issue != nil {
				t.Errorf("Get(%d) = %v, want nil", tt.id, issue)
			}
			continue
		}
		if issue == nil {
			t.Errorf("Get(%d) returned nil", tt.id)
			continue
		}
		if issue.Id() != tt.id {
			t.Errorf("Get(%d).Id() = %d", tt.id, issue.Id())
		}
		if !strings.Contains(string(issue.mdMsg), tt.want) {
			t.Errorf("Get(%d) message should contain %q", tt.id, tt.want)
		}
	}
}

//nolint:paralleltest // mutates the package-level render function
func TestIssue_Render(t *testing.T) {
	stubRender(t)

	withLinks := &Issue{
		id:    Id(9999),
		mdMsg: "# Test Issue\n\nThis is a test.",
		links: []HttpLink{"https://docs.example.com", "https://external.example.com"},
	}
	rendered, err := withLinks.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	for _, want := range []string{"See also", "<https://docs.example.com>", "<https://external.example.com>"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("Render() output missing %q:\n%s", want, rendered)
		}
	}

	rendered, err = Get(ManifestInvalidId).Render("")
	if err != nil || !strings.Contains(rendered, "<https://fabricmc.net/wiki/documentation:fabric_mod_json>") {
		t.Errorf("manifest issue should link the fabric.mod.json docs, got (%v):\n%s", err, rendered)
	}

	noLinks := &Issue{id: Id(9998), mdMsg: "# Test Issue\n\nNo links here."}
	rendered, err = noLinks.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if strings.Contains(rendered, "See also") {
		t.Error("Render() without links should not contain 'See also'")
	}
}

//nolint:paralleltest // mutates the package-level render function
func TestAllIssuesAreRenderable(t *testing.T) {
	stubRender(t)

	for _, issue := range Values() {
		rendered, err := issue.Render("")
		if err != nil {
			t.Errorf("Issue %d failed to render: %v", issue.Id(), err)
		}
		if !strings.HasPrefix(strings.TrimSpace(rendered), "# ") {
			t.Errorf("Issue %d should start with a heading:\n%s", issue.Id(), rendered)
		}
	}
}

func TestValues(t *testing.T) {
	t.Parallel()

	values := Values()
	if len(values) != len(allIds) {
		t.Fatalf("Values() returned %d issues, want %d", len(values), len(allIds))
	}
	for i, issue := range values {
		if issue.Id() != allIds[i] {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, issue.Id(), allIds[i])
		}
	}
}
