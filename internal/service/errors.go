package service

import "errors"

// Sentinel errors surfaced to the request layer. Storage and persistence
// failures are wrapped with %w instead so their cause stays inspectable.
var (
	ErrIDRequired     = errors.New("id is required")
	ErrReaderNil      = errors.New("reader is nil")
	ErrNotFound       = errors.New("document not found")
	ErrInvalidState   = errors.New("operation not allowed in current document state")
	ErrQuotaExceeded  = errors.New("storage quota exceeded")
	ErrNameRequired   = errors.New("name is required")
	ErrFolderNotFound = errors.New("folder not found")
	ErrInvalidSetting = errors.New("setting value must be positive")
)
