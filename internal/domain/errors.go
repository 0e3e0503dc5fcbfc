package domain

import "errors"

var (
	ErrGalleryNotFound     = errors.New("gallery not found")
	ErrPathRejected        = errors.New("path rejected")
	ErrUnauthorizedPath    = errors.New("unauthorized path")
	ErrGalleryNotPublished = errors.New("gallery not published")
	ErrGalleryLocked       = errors.New("gallery locked")
	ErrSuiteLocked         = errors.New("ai suite locked")
	ErrVideoLimit          = errors.New("ai video limit reached")
	ErrAIDisabled          = errors.New("ai videos disabled")
	ErrSchemaRejected      = errors.New("provider rejected every payload schema")
	ErrRelayTimeout        = errors.New("storage relay timed out")
	ErrNoProviderToken     = errors.New("storage provider token missing")

	// ErrImageCount is surfaced verbatim to API clients, so the message is
	// user-facing copy rather than a lowercase error string.
	ErrImageCount = errors.New("Select 3–5 images.")

	ErrInvalidDuration = errors.New("duration must be 5 or 10 seconds")
)
