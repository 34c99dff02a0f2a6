package vote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"livepolls/internal/broadcast"
	"livepolls/internal/domain/poll"
)

const defaultTxTimeout = 5 * time.Second

type Publisher interface {
	Publish(ev broadcast.Event)
}

type Result struct {
	Action     Action
	VotedIndex int
	Snapshot   *poll.Snapshot
}

type Service struct {
	store     Store
	projector poll.Projector
	publisher Publisher
	txTimeout time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(store Store, projector poll.Projector, publisher Publisher, txTimeout time.Duration, logger *slog.Logger) *Service {
	if txTimeout <= 0 {
		txTimeout = defaultTxTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		projector: projector,
		publisher: publisher,
		txTimeout: txTimeout,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock replaces the wall clock, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Submit records userID's choice of optionIdx on pollID.
//
// The whole check-and-write runs in one store transaction bounded by the
// transaction timeout. A committed attempt, including one that changed
// nothing, is followed by a fresh snapshot broadcast for the poll.
func (s *Service) Submit(ctx context.Context, pollID, userID string, optionIdx int) (Result, error) {
	action, err := s.record(ctx, pollID, userID, optionIdx)
	if err != nil {
		return Result{}, err
	}

	snap, err := s.projector.Project(ctx, pollID, userID)
	if err != nil {
		return Result{}, err
	}

	s.publisher.Publish(broadcast.Event{Kind: broadcast.PollUpdated, Data: snap, Actor: userID})
	s.logger.Info("vote recorded",
		"event", "vote_recorded",
		"poll_id", pollID,
		"user_id", userID,
		"action", string(action),
		"option_idx", optionIdx,
	)
	return Result{Action: action, VotedIndex: optionIdx, Snapshot: snap}, nil
}

func (s *Service) record(ctx context.Context, pollID, userID string, optionIdx int) (Action, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	var action Action
	err := s.store.WithinTx(txCtx, func(tx Tx) error {
		p, err := tx.GetPoll(txCtx, pollID)
		if err != nil {
			return err
		}

		now := s.now()
		if p.ClosedAt(now) {
			return ErrPollClosed
		}
		if !p.HasOption(optionIdx) {
			return ErrInvalidOption
		}

		prev, err := tx.LockVote(txCtx, pollID, userID)
		if err != nil {
			return err
		}

		v := &Vote{PollID: pollID, UserID: userID, OptionIdx: optionIdx, UpdatedAt: now}
		switch {
		case prev == nil:
			action = ActionVoted
			return tx.InsertVote(txCtx, v)
		case prev.OptionIdx == optionIdx:
			action = ActionUnchanged
			return nil
		default:
			action = ActionChanged
			return tx.UpdateVote(txCtx, v)
		}
	})
	if err != nil {
		if errors.Is(txCtx.Err(), context.DeadlineExceeded) && !terminal(err) && !errors.Is(err, poll.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: vote transaction timed out: %w", poll.ErrStoreUnavailable, err)
		}
		if errors.Is(err, poll.ErrStoreUnavailable) {
			s.logger.Warn("vote transaction failed",
				"event", "vote_tx_failed",
				"poll_id", pollID,
				"user_id", userID,
				"error", err.Error(),
			)
		}
		return "", err
	}
	return action, nil
}

// terminal errors are final for the request; retrying cannot change them.
func terminal(err error) bool {
	return errors.Is(err, poll.ErrPollNotFound) ||
		errors.Is(err, ErrPollClosed) ||
		errors.Is(err, ErrInvalidOption)
}
