package api

import (
	"errors"
	"net/http"

	"livepolls/internal/domain/poll"
	"livepolls/internal/domain/vote"
	"livepolls/internal/platform/apperr"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	if appErr.StatusCode() >= http.StatusInternalServerError {
		slogLogger.Error("request failed", "error_code", appErr.Code, "error", err)
	}
	writeJSON(w, appErr.StatusCode(), map[string]string{
		"error":   appErr.Code,
		"message": appErr.Message,
	})
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, poll.ErrPollNotFound):
		return apperr.NotFound("poll_not_found", "Poll not found", err)
	case errors.Is(err, vote.ErrPollClosed):
		return apperr.Forbidden("poll_closed", "Poll is closed", err)
	case errors.Is(err, vote.ErrInvalidOption):
		return apperr.BadRequest("invalid_option", "Invalid option index", err)
	case errors.Is(err, poll.ErrQuestionRequired),
		errors.Is(err, poll.ErrTooFewOptions),
		errors.Is(err, poll.ErrEmptyOption),
		errors.Is(err, poll.ErrInvalidExpiry):
		return apperr.BadRequest("invalid_input", err.Error(), err)
	case errors.Is(err, poll.ErrStoreUnavailable):
		return apperr.ServiceUnavailable("store_unavailable", "Service temporarily unavailable, retry", err)
	default:
		return apperr.FromError(err)
	}
}
