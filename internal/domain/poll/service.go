package poll

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"livepolls/internal/broadcast"
)

type Publisher interface {
	Publish(ev broadcast.Event)
}

type Service struct {
	repo      Repository
	projector Projector
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, projector Projector, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		projector: projector,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock replaces the wall clock, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Create stores a new poll and announces its initial, all-zero snapshot.
func (s *Service) Create(ctx context.Context, in CreateInput, userID string) (*Snapshot, error) {
	now := s.now()
	if err := validate(in, now); err != nil {
		return nil, err
	}

	p := &Poll{
		ID:        uuid.NewString(),
		Question:  strings.TrimSpace(in.Question),
		Options:   append([]string(nil), in.Options...),
		ExpiresAt: in.ExpiresAt.UTC(),
		CreatedAt: now.UTC(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	snap, err := s.projector.Project(ctx, p.ID, userID)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(broadcast.Event{Kind: broadcast.PollCreated, Data: snap, Actor: userID})
	s.logger.Info("poll created",
		"event", "poll_created",
		"poll_id", p.ID,
		"options", len(p.Options),
		"expires_at", p.ExpiresAt,
	)
	return snap, nil
}

func (s *Service) Get(ctx context.Context, pollID, userID string) (*Snapshot, error) {
	return s.projector.Project(ctx, pollID, userID)
}

// List returns snapshots of every stored poll, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Snapshot, error) {
	return s.projector.ProjectAll(ctx, userID)
}

func validate(in CreateInput, now time.Time) error {
	if strings.TrimSpace(in.Question) == "" {
		return ErrQuestionRequired
	}
	if len(in.Options) < 2 {
		return ErrTooFewOptions
	}
	for _, o := range in.Options {
		if strings.TrimSpace(o) == "" {
			return ErrEmptyOption
		}
	}
	if in.ExpiresAt.IsZero() || !in.ExpiresAt.After(now) {
		return ErrInvalidExpiry
	}
	return nil
}
