package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"livepolls/internal/domain/poll"
	"livepolls/internal/domain/vote"
)

type VoteRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewVoteRepo(db *sql.DB, logger *slog.Logger) *VoteRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoteRepo{db: db, logger: logger}
}

// WithinTx runs fn in a SERIALIZABLE transaction. Serialization and deadlock
// aborts come back as poll.ErrStoreUnavailable; the transaction has rolled
// back, so the caller may retry.
func (r *VoteRepo) WithinTx(ctx context.Context, fn func(tx vote.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	if err := fn(&voteTx{tx: tx}); err != nil {
		if errors.Is(err, poll.ErrStoreUnavailable) {
			r.logAbort(err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		err = classify(err)
		r.logAbort(err)
		return err
	}
	return nil
}

func (r *VoteRepo) logAbort(err error) {
	r.logger.Warn("vote transaction aborted",
		"event", "vote_tx_aborted",
		"retryable", retryable(err),
		"error", err.Error(),
	)
}

type voteTx struct {
	tx *sql.Tx
}

func (t *voteTx) GetPoll(ctx context.Context, pollID string) (*poll.Poll, error) {
	p, err := scanPoll(t.tx.QueryRowContext(ctx, `
        SELECT id, question, options, expires_at, created_at
        FROM polls WHERE id = $1
    `, pollID))
	if err != nil {
		return nil, classify(err)
	}
	return p, nil
}

func (t *voteTx) LockVote(ctx context.Context, pollID, userID string) (*vote.Vote, error) {
	v := &vote.Vote{PollID: pollID, UserID: userID}
	err := t.tx.QueryRowContext(ctx, `
        SELECT option_idx, updated_at FROM votes
        WHERE poll_id = $1 AND user_id = $2
        FOR UPDATE
    `, pollID, userID).Scan(&v.OptionIdx, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return v, nil
}

// InsertVote relies on the (poll_id, user_id) primary key: if a concurrent
// first vote by the same user won the race, the unique violation aborts this
// transaction and a retry will see that row.
func (t *voteTx) InsertVote(ctx context.Context, v *vote.Vote) error {
	_, err := t.tx.ExecContext(ctx, `
        INSERT INTO votes (poll_id, user_id, option_idx, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $4)
    `, v.PollID, v.UserID, v.OptionIdx, v.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: concurrent first vote: %w", poll.ErrStoreUnavailable, err)
	}
	return classify(err)
}

func (t *voteTx) UpdateVote(ctx context.Context, v *vote.Vote) error {
	_, err := t.tx.ExecContext(ctx, `
        UPDATE votes SET option_idx = $1, updated_at = $2
        WHERE poll_id = $3 AND user_id = $4
    `, v.OptionIdx, v.UpdatedAt, v.PollID, v.UserID)
	return classify(err)
}
