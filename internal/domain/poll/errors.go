package poll

import "errors"

var (
	ErrPollNotFound     = errors.New("poll not found")
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrQuestionRequired = errors.New("question is required")
	ErrTooFewOptions    = errors.New("poll must have at least 2 options")
	ErrEmptyOption      = errors.New("all options must be non-empty strings")
	ErrInvalidExpiry    = errors.New("expiresAt must be a valid future date")
)
