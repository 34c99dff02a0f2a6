package poll_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livepolls/internal/broadcast"
	"livepolls/internal/domain/poll"
	"livepolls/internal/domain/tally"
	"livepolls/internal/repository/memory"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type recorder struct{ events []broadcast.Event }

func (r *recorder) Publish(ev broadcast.Event) { r.events = append(r.events, ev) }

func newService() (*poll.Service, *recorder) {
	store := memory.NewStore()
	proj := tally.NewProjector(store)
	proj.SetClock(func() time.Time { return now })
	pub := &recorder{}
	svc := poll.NewService(store, proj, pub, nil)
	svc.SetClock(func() time.Time { return now })
	return svc, pub
}

func TestCreateBroadcastsZeroSnapshot(t *testing.T) {
	svc, pub := newService()

	snap, err := svc.Create(context.Background(), poll.CreateInput{
		Question:  "  Lunch?  ",
		Options:   []string{"pizza", "sushi", "salad"},
		ExpiresAt: now.Add(30 * time.Minute),
	}, "alice")
	require.NoError(t, err)

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, "Lunch?", snap.Question)
	assert.Equal(t, []int64{0, 0, 0}, snap.Votes)
	assert.Nil(t, snap.VotedIndex)
	assert.False(t, snap.Closed)
	assert.Equal(t, now, snap.CreatedAt)

	require.Len(t, pub.events, 1)
	assert.Equal(t, broadcast.PollCreated, pub.events[0].Kind)
	assert.Equal(t, "alice", pub.events[0].Actor)
	assert.Equal(t, snap, pub.events[0].Data)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		in   poll.CreateInput
		want error
	}{
		{"blank question", poll.CreateInput{Question: " ", Options: []string{"a", "b"}, ExpiresAt: now.Add(time.Hour)}, poll.ErrQuestionRequired},
		{"one option", poll.CreateInput{Question: "q", Options: []string{"a"}, ExpiresAt: now.Add(time.Hour)}, poll.ErrTooFewOptions},
		{"empty option", poll.CreateInput{Question: "q", Options: []string{"a", ""}, ExpiresAt: now.Add(time.Hour)}, poll.ErrEmptyOption},
		{"past expiry", poll.CreateInput{Question: "q", Options: []string{"a", "b"}, ExpiresAt: now.Add(-time.Second)}, poll.ErrInvalidExpiry},
		{"expiry now", poll.CreateInput{Question: "q", Options: []string{"a", "b"}, ExpiresAt: now}, poll.ErrInvalidExpiry},
		{"missing expiry", poll.CreateInput{Question: "q", Options: []string{"a", "b"}}, poll.ErrInvalidExpiry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, pub := newService()
			_, err := svc.Create(context.Background(), tt.in, "alice")
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, pub.events)
		})
	}
}

func TestGetAndList(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Get(ctx, "missing", "alice")
	assert.ErrorIs(t, err, poll.ErrPollNotFound)

	first, err := svc.Create(ctx, poll.CreateInput{Question: "one", Options: []string{"a", "b"}, ExpiresAt: now.Add(time.Hour)}, "alice")
	require.NoError(t, err)

	got, err := svc.Get(ctx, first.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, first.Question, got.Question)

	list, err := svc.List(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
}
