package vote

import (
	"context"
	"time"

	"livepolls/internal/domain/poll"
)

// Vote is the single current choice of one user for one poll.
type Vote struct {
	PollID    string    `json:"pollId"`
	UserID    string    `json:"userId"`
	OptionIdx int       `json:"optionIdx"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Action classifies a committed vote attempt.
type Action string

const (
	ActionVoted     Action = "voted"
	ActionChanged   Action = "changed_vote"
	ActionUnchanged Action = "no_change"
)

// Tx is the view of the store inside one vote transaction. Implementations
// must make LockVote hold a lock on the (pollID, userID) record until the
// transaction ends.
type Tx interface {
	GetPoll(ctx context.Context, pollID string) (*poll.Poll, error)
	// LockVote returns nil when the user has no vote on the poll.
	LockVote(ctx context.Context, pollID, userID string) (*Vote, error)
	InsertVote(ctx context.Context, v *Vote) error
	UpdateVote(ctx context.Context, v *Vote) error
}

// Store runs fn atomically: every write made through tx is committed if fn
// returns nil and rolled back otherwise.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
