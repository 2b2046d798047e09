// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/charmbracelet/log"

	"github.com/nuclearfarts/jijflattener/internal/config"
	"github.com/nuclearfarts/jijflattener/internal/flatten"
	"github.com/nuclearfarts/jijflattener/internal/issue"
)

// issueStyle is the glamour style used for catalog entries.
const issueStyle = "dark"

// ServiceError is an error that carries optional rendering information for
// the CLI layer. Always create via newServiceError.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
	// StyledMessage is the optional pre-rendered styled error text.
	StyledMessage string
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{
		Err:           err,
		IssueID:       issueID,
		StyledMessage: styledMessage,
	}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// renderServiceError prints the styled message, then the issue help section.
func renderServiceError(stderr io.Writer, svcErr *ServiceError) {
	if svcErr == nil {
		return
	}

	if svcErr.StyledMessage != "" {
		fmt.Fprint(stderr, svcErr.StyledMessage)
	}

	if svcErr.IssueID == 0 {
		return
	}

	if catalogEntry := issue.Get(svcErr.IssueID); catalogEntry != nil {
		rendered, renderErr := catalogEntry.Render(issueStyle)
		if renderErr != nil {
			log.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "err", renderErr)
		} else {
			fmt.Fprint(stderr, rendered)
		}
	}
}

// classifyError maps a failure to an issue catalog ID and a styled one-line
// message. Permission problems win over the error class they surfaced in.
func classifyError(err error, verbose bool) (issueID issue.Id, styledMsg string) {
	issueID = issue.ArchiveIOId

	var ioErr *flatten.ArchiveIOError
	switch {
	case errors.Is(err, fs.ErrPermission):
		issueID = issue.PermissionDeniedId
	case errors.Is(err, ErrUsage):
		issueID = issue.UsageId
	case errors.Is(err, flatten.ErrManifest):
		issueID = issue.ManifestInvalidId
	case errors.Is(err, flatten.ErrVersionParse):
		issueID = issue.VersionUnparseableId
	case errors.Is(err, flatten.ErrUnknownFormat):
		issueID = issue.ReportWriteFailedId
	case errors.Is(err, config.ErrInvalidConfig), isConfigError(err):
		issueID = issue.ConfigLoadFailedId
	case errors.As(err, &ioErr) && ioErr.Op == "stat":
		issueID = issue.InputNotFoundId
	}

	return issueID, fmt.Sprintf("\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
}

// isConfigError reports actionable errors raised while loading configuration.
func isConfigError(err error) bool {
	var ae *issue.ActionableError
	return errors.As(err, &ae) && (ae.Operation == "load configuration" || ae.Operation == "validate configuration")
}

// formatErrorForDisplay uses the ActionableError format when available. In
// verbose mode the full error chain is shown.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}
