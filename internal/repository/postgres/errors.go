package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"livepolls/internal/domain/poll"
)

// Postgres SQLSTATE codes the ledger cares about.
const (
	codeUniqueViolation      = "23505"
	codeInvalidTextRepr      = "22P02"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
)

// classify maps a driver error onto the domain taxonomy. Anything that is not
// a definite answer about the data is a transient store failure, which is
// safe to retry because the transaction rolled back.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, poll.ErrPollNotFound) || errors.Is(err, poll.ErrStoreUnavailable) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return poll.ErrPollNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeInvalidTextRepr {
		// A malformed id cannot name an existing poll.
		return poll.ErrPollNotFound
	}
	return fmt.Errorf("%w: %w", poll.ErrStoreUnavailable, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}
	return false
}

// retryable reports whether err is a concurrency abort rather than an
// infrastructure fault. Both classify as unavailable; this only feeds logs.
func retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeQueryCanceled, codeUniqueViolation:
			return true
		}
	}
	return false
}
