// Package memory is an in-process implementation of the poll ledger. It
// serialises every transaction behind one lock, which trivially provides the
// per-(poll, user) serialisation the vote path needs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"livepolls/internal/domain/poll"
	"livepolls/internal/domain/tally"
	"livepolls/internal/domain/vote"
)

type Store struct {
	// sem is a context-aware mutex: a transaction that cannot get it before
	// its deadline gives up instead of waiting forever.
	sem   chan struct{}
	polls map[string]poll.Poll
	votes map[string]map[string]vote.Vote
}

func NewStore() *Store {
	return &Store{
		sem:   make(chan struct{}, 1),
		polls: make(map[string]poll.Poll),
		votes: make(map[string]map[string]vote.Vote),
	}
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", poll.ErrStoreUnavailable, ctx.Err())
	}
}

func (s *Store) release() { <-s.sem }

func (s *Store) Create(ctx context.Context, p *poll.Poll) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	if _, exists := s.polls[p.ID]; exists {
		return fmt.Errorf("poll %s already exists", p.ID)
	}
	cp := *p
	cp.Options = append([]string(nil), p.Options...)
	s.polls[p.ID] = cp
	return nil
}

func (s *Store) ReadPoll(ctx context.Context, pollID, userID string) (tally.Ledger, error) {
	if err := s.acquire(ctx); err != nil {
		return tally.Ledger{}, err
	}
	defer s.release()

	p, ok := s.polls[pollID]
	if !ok {
		return tally.Ledger{}, poll.ErrPollNotFound
	}
	return s.ledger(p, userID), nil
}

func (s *Store) ReadAll(ctx context.Context, userID string) ([]tally.Ledger, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	out := make([]tally.Ledger, 0, len(s.polls))
	for _, p := range s.polls {
		out = append(out, s.ledger(p, userID))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Poll, out[j].Poll
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID > b.ID
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out, nil
}

func (s *Store) ledger(p poll.Poll, userID string) tally.Ledger {
	p.Options = append([]string(nil), p.Options...)
	l := tally.Ledger{Poll: p, Counts: make(map[int]int64)}
	for uid, v := range s.votes[p.ID] {
		l.Counts[v.OptionIdx]++
		if userID != "" && uid == userID {
			idx := v.OptionIdx
			l.Voted = &idx
		}
	}
	return l
}

// DeleteExpired removes polls that closed before both now and cutoff, and
// every vote they own.
func (s *Store) DeleteExpired(ctx context.Context, now, cutoff time.Time) (int64, error) {
	if err := s.acquire(ctx); err != nil {
		return 0, err
	}
	defer s.release()

	var n int64
	for id, p := range s.polls {
		if p.ExpiresAt.Before(now) && p.ExpiresAt.Before(cutoff) {
			delete(s.polls, id)
			delete(s.votes, id)
			n++
		}
	}
	return n, nil
}

// VoteCount is the number of live vote records for a poll.
func (s *Store) VoteCount(pollID string) int {
	s.sem <- struct{}{}
	defer s.release()
	return len(s.votes[pollID])
}

// WithinTx stages writes and applies them only when fn succeeds and the
// context is still live.
func (s *Store) WithinTx(ctx context.Context, fn func(tx vote.Tx) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	tx := &memTx{store: s, staged: make(map[voteKey]vote.Vote)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", poll.ErrStoreUnavailable, err)
	}
	for k, v := range tx.staged {
		if s.votes[k.pollID] == nil {
			s.votes[k.pollID] = make(map[string]vote.Vote)
		}
		s.votes[k.pollID][k.userID] = v
	}
	return nil
}

type voteKey struct {
	pollID string
	userID string
}

type memTx struct {
	store  *Store
	staged map[voteKey]vote.Vote
}

func (t *memTx) GetPoll(ctx context.Context, pollID string) (*poll.Poll, error) {
	p, ok := t.store.polls[pollID]
	if !ok {
		return nil, poll.ErrPollNotFound
	}
	p.Options = append([]string(nil), p.Options...)
	return &p, nil
}

func (t *memTx) LockVote(ctx context.Context, pollID, userID string) (*vote.Vote, error) {
	if v, ok := t.staged[voteKey{pollID, userID}]; ok {
		return &v, nil
	}
	if v, ok := t.store.votes[pollID][userID]; ok {
		return &v, nil
	}
	return nil, nil
}

func (t *memTx) InsertVote(ctx context.Context, v *vote.Vote) error {
	if existing, _ := t.LockVote(ctx, v.PollID, v.UserID); existing != nil {
		return fmt.Errorf("%w: duplicate vote for poll %s", poll.ErrStoreUnavailable, v.PollID)
	}
	t.staged[voteKey{v.PollID, v.UserID}] = *v
	return nil
}

func (t *memTx) UpdateVote(ctx context.Context, v *vote.Vote) error {
	if existing, _ := t.LockVote(ctx, v.PollID, v.UserID); existing == nil {
		return fmt.Errorf("vote for poll %s not found", v.PollID)
	}
	t.staged[voteKey{v.PollID, v.UserID}] = *v
	return nil
}
