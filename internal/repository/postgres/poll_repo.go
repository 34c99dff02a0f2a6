package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"livepolls/internal/domain/poll"
	"livepolls/internal/domain/tally"
)

type PollRepo struct {
	db *sql.DB
}

func NewPollRepo(db *sql.DB) *PollRepo {
	return &PollRepo{db: db}
}

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO polls (id, question, options, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, p.ID, p.Question, p.Options, p.ExpiresAt, p.CreatedAt)
	return classify(err)
}

// ReadPoll reads the poll, its grouped counts and the caller's vote inside one
// repeatable-read snapshot, so a concurrent delete surfaces as not found
// rather than as a half-built ledger.
func (r *PollRepo) ReadPoll(ctx context.Context, pollID, userID string) (tally.Ledger, error) {
	var l tally.Ledger
	err := r.readOnly(ctx, func(tx *sql.Tx) error {
		p, err := scanPoll(tx.QueryRowContext(ctx, `
            SELECT id, question, options, expires_at, created_at
            FROM polls WHERE id = $1
        `, pollID))
		if err != nil {
			return err
		}

		counts, err := countVotes(ctx, tx, `
            SELECT poll_id, option_idx, COUNT(*)
            FROM votes WHERE poll_id = $1
            GROUP BY poll_id, option_idx
        `, pollID)
		if err != nil {
			return err
		}

		l = tally.Ledger{Poll: *p, Counts: counts[p.ID]}
		if userID == "" {
			return nil
		}
		var idx int
		err = tx.QueryRowContext(ctx, `
            SELECT option_idx FROM votes WHERE poll_id = $1 AND user_id = $2
        `, pollID, userID).Scan(&idx)
		switch {
		case err == sql.ErrNoRows:
			return nil
		case err != nil:
			return err
		}
		l.Voted = &idx
		return nil
	})
	if err != nil {
		return tally.Ledger{}, classify(err)
	}
	return l, nil
}

func (r *PollRepo) ReadAll(ctx context.Context, userID string) ([]tally.Ledger, error) {
	var res []tally.Ledger
	err := r.readOnly(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
            SELECT id, question, options, expires_at, created_at
            FROM polls ORDER BY created_at DESC, id DESC
        `)
		if err != nil {
			return err
		}
		defer rows.Close()

		var polls []poll.Poll
		for rows.Next() {
			p, err := scanPoll(rows)
			if err != nil {
				return err
			}
			polls = append(polls, *p)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		counts, err := countVotes(ctx, tx, `
            SELECT poll_id, option_idx, COUNT(*)
            FROM votes GROUP BY poll_id, option_idx
        `)
		if err != nil {
			return err
		}

		voted := make(map[string]int)
		if userID != "" {
			vrows, err := tx.QueryContext(ctx, `SELECT poll_id, option_idx FROM votes WHERE user_id = $1`, userID)
			if err != nil {
				return err
			}
			defer vrows.Close()
			for vrows.Next() {
				var pollID string
				var idx int
				if err := vrows.Scan(&pollID, &idx); err != nil {
					return err
				}
				voted[pollID] = idx
			}
			if err := vrows.Err(); err != nil {
				return err
			}
		}

		res = make([]tally.Ledger, 0, len(polls))
		for _, p := range polls {
			l := tally.Ledger{Poll: p, Counts: counts[p.ID]}
			if idx, ok := voted[p.ID]; ok {
				l.Voted = &idx
			}
			res = append(res, l)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return res, nil
}

// DeleteExpired removes polls whose expiry is before both now and cutoff.
// Votes go with them through ON DELETE CASCADE in the same statement.
func (r *PollRepo) DeleteExpired(ctx context.Context, now, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        DELETE FROM polls WHERE expires_at < $1 AND expires_at < $2
    `, now, cutoff)
	if err != nil {
		return 0, classify(err)
	}
	return res.RowsAffected()
}

func (r *PollRepo) readOnly(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoll(row rowScanner) (*poll.Poll, error) {
	p := &poll.Poll{}
	// pgtype.Map caches scan plans and is not safe to share across goroutines.
	opts := pgtype.NewMap().SQLScanner(&p.Options)
	if err := row.Scan(&p.ID, &p.Question, opts, &p.ExpiresAt, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.ExpiresAt = p.ExpiresAt.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func countVotes(ctx context.Context, tx *sql.Tx, query string, args ...any) (map[string]map[int]int64, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[string]map[int]int64)
	for rows.Next() {
		var pollID string
		var idx int
		var c int64
		if err := rows.Scan(&pollID, &idx, &c); err != nil {
			return nil, err
		}
		if res[pollID] == nil {
			res[pollID] = make(map[int]int64)
		}
		res[pollID][idx] = c
	}
	return res, rows.Err()
}
