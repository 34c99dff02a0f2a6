package vote

import "errors"

var (
	ErrPollClosed    = errors.New("poll is closed")
	ErrInvalidOption = errors.New("invalid option index")
)
