// Package tally projects poll snapshots from the vote ledger.
//
// Tallies are never stored. Every snapshot is recomputed from the live vote
// records read in a single consistent store read, so a snapshot cannot drift
// from the ledger.
package tally

import (
	"context"
	"time"

	"livepolls/internal/domain/poll"
)

// Ledger is one consistent read of a poll and its votes.
type Ledger struct {
	Poll poll.Poll
	// Counts maps option index to the number of live votes for it.
	Counts map[int]int64
	// Voted is the requesting user's current option, nil if none.
	Voted *int
}

type Store interface {
	// ReadPoll returns poll.ErrPollNotFound when the poll does not exist.
	ReadPoll(ctx context.Context, pollID, userID string) (Ledger, error)
	// ReadAll returns ledgers for every poll, newest first.
	ReadAll(ctx context.Context, userID string) ([]Ledger, error)
}

type Projector struct {
	store Store
	now   func() time.Time
}

func NewProjector(store Store) *Projector {
	return &Projector{store: store, now: time.Now}
}

// SetClock replaces the wall clock, for tests.
func (p *Projector) SetClock(now func() time.Time) {
	p.now = now
}

func (p *Projector) Project(ctx context.Context, pollID, userID string) (*poll.Snapshot, error) {
	l, err := p.store.ReadPoll(ctx, pollID, userID)
	if err != nil {
		return nil, err
	}
	snap := Build(l, p.now())
	return &snap, nil
}

func (p *Projector) ProjectAll(ctx context.Context, userID string) ([]poll.Snapshot, error) {
	ledgers, err := p.store.ReadAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := p.now()
	out := make([]poll.Snapshot, 0, len(ledgers))
	for _, l := range ledgers {
		out = append(out, Build(l, now))
	}
	return out, nil
}

// Build turns a ledger read into a snapshot. The tally always has one slot
// per option; counts for indices outside the option range are ignored.
func Build(l Ledger, now time.Time) poll.Snapshot {
	votes := make([]int64, len(l.Poll.Options))
	for idx, c := range l.Counts {
		if idx >= 0 && idx < len(votes) {
			votes[idx] = c
		}
	}

	var voted *int
	if l.Voted != nil {
		v := *l.Voted
		voted = &v
	}

	return poll.Snapshot{
		ID:         l.Poll.ID,
		Question:   l.Poll.Question,
		Options:    append([]string(nil), l.Poll.Options...),
		ExpiresAt:  l.Poll.ExpiresAt,
		CreatedAt:  l.Poll.CreatedAt,
		Votes:      votes,
		VotedIndex: voted,
		Closed:     l.Poll.ClosedAt(now),
	}
}
