package poll

import (
	"context"
	"time"
)

// Poll is immutable once created. The position of an option in Options is
// its identity for the lifetime of the poll.
type Poll struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Options   []string  `json:"options"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// ClosedAt reports whether the poll no longer accepts votes at now.
func (p *Poll) ClosedAt(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

func (p *Poll) HasOption(idx int) bool {
	return idx >= 0 && idx < len(p.Options)
}

// Snapshot is the projected view of a poll sent to clients, both in API
// responses and in broadcast payloads. Votes is parallel to Options.
type Snapshot struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	Options    []string  `json:"options"`
	ExpiresAt  time.Time `json:"expiresAt"`
	CreatedAt  time.Time `json:"createdAt"`
	Votes      []int64   `json:"votes"`
	VotedIndex *int      `json:"votedIndex"`
	Closed     bool      `json:"closed"`
}

type CreateInput struct {
	Question  string
	Options   []string
	ExpiresAt time.Time
}

type Repository interface {
	Create(ctx context.Context, p *Poll) error
}

// Projector builds snapshots from the vote ledger.
type Projector interface {
	Project(ctx context.Context, pollID, userID string) (*Snapshot, error)
	ProjectAll(ctx context.Context, userID string) ([]Snapshot, error)
}
