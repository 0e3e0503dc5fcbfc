package dropbox

import (
	"errors"
	"fmt"
)

// ProviderTag identifies these credentials in the tenant credential store.
const ProviderTag = "dropbox"

// ErrSharedLinkExists signals the provider's "already shared" conflict; the
// caller recovers by listing existing links for the path.
var ErrSharedLinkExists = errors.New("dropbox: shared link already exists")

// APIError is a non-2xx response from the provider that is not an auth
// rejection handled by the refresh-and-retry wrapper.
type APIError struct {
	Status  int
	Summary string
}

func (e *APIError) Error() string {
	if e.Summary != "" {
		return fmt.Sprintf("dropbox: status %d: %s", e.Status, e.Summary)
	}
	return fmt.Sprintf("dropbox: status %d", e.Status)
}

// SaveURLTag discriminates the provider's save-by-URL responses.
type SaveURLTag string

const (
	SaveURLComplete   SaveURLTag = "complete"
	SaveURLAsyncJob   SaveURLTag = "async_job_id"
	SaveURLInProgress SaveURLTag = "in_progress"
	SaveURLFailed     SaveURLTag = "failed"
)

// SaveURLResult models the save-by-URL response as a tagged union instead of
// ad hoc string inspection at each call site.
type SaveURLResult struct {
	Tag        SaveURLTag
	Path       string
	AsyncJobID string
	Reason     string
}

type saveURLResponse struct {
	Tag        string `json:".tag"`
	AsyncJobID string `json:"async_job_id"`
	PathLower  string `json:"path_lower"`
	PathDisp   string `json:"path_display"`
	Error      struct {
		Tag string `json:".tag"`
	} `json:"error"`
}

func (r saveURLResponse) toResult() SaveURLResult {
	path := r.PathDisp
	if path == "" {
		path = r.PathLower
	}
	switch r.Tag {
	case "complete":
		return SaveURLResult{Tag: SaveURLComplete, Path: path}
	case "async_job_id":
		return SaveURLResult{Tag: SaveURLAsyncJob, AsyncJobID: r.AsyncJobID}
	case "in_progress":
		return SaveURLResult{Tag: SaveURLInProgress}
	case "failed":
		return SaveURLResult{Tag: SaveURLFailed, Reason: r.Error.Tag}
	default:
		return SaveURLResult{Tag: SaveURLFailed, Reason: "unrecognized tag " + r.Tag}
	}
}

type errorResponse struct {
	ErrorSummary string `json:"error_summary"`
}
