package domain

import "errors"

var (
	ErrCredentialsMissing = errors.New("credentials missing")
	ErrMalformedEventLine = errors.New("malformed event line")
	ErrFolderMissing      = errors.New("upload folder missing")
	ErrUploadInProgress   = errors.New("upload already in progress")
	ErrSupervisorStopped  = errors.New("supervisor stopped")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrProfileNotFound    = errors.New("upload profile not found")
)
