package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livepolls/internal/broadcast"
	"livepolls/internal/domain/poll"
	"livepolls/internal/domain/tally"
	"livepolls/internal/domain/vote"
	jwtpkg "livepolls/internal/platform/jwt"
	"livepolls/internal/ratelimit"
	"livepolls/internal/repository/memory"
)

type testEnv struct {
	server *httptest.Server
	store  *memory.Store
	hub    *broadcast.Hub
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	hub := broadcast.NewHub(nil)
	proj := tally.NewProjector(store)

	server := httptest.NewServer(NewRouter(Deps{
		Polls:   poll.NewService(store, proj, hub, nil),
		Votes:   vote.NewService(store, proj, hub, time.Second, nil),
		JWT:     jwtpkg.NewManager("secret", "test-issuer"),
		JWTTTL:  time.Hour,
		Limiter: ratelimit.NewLimiter(ratelimit.NewMemoryWindow(), 5, time.Minute, nil),
		Hub:     hub,
	}))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return &testEnv{server: server, store: store, hub: hub}
}

func (e *testEnv) login(t *testing.T) (token, userID string) {
	t.Helper()
	resp, err := http.Get(e.server.URL + "/api/v1/auth/login")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.NotEmpty(t, payload.Token)
	require.NotEmpty(t, payload.UserID)
	return payload.Token, payload.UserID
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (e *testEnv) createPoll(t *testing.T, token string) poll.Snapshot {
	t.Helper()
	var out createPollResponse
	status := e.do(t, http.MethodPost, "/api/v1/poll", token, createPollRequest{
		Question:  "Best editor?",
		Options:   []string{"vim", "emacs", "other"},
		ExpiresAt: time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	}, &out)
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, out.Poll)
	require.Equal(t, out.ID, out.Poll.ID)
	return *out.Poll
}

func ballot(idx any) map[string]any {
	return map[string]any{"optionIdx": idx}
}

func TestAuthRequired(t *testing.T) {
	env := setupServer(t)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/v1/polls", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/v1/polls", "garbage", nil, nil))

	other := jwtpkg.NewManager("other-secret", "test-issuer")
	forged, err := other.Generate("mallory", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/v1/polls", forged, nil, nil))
}

func TestCreateAndFetchPoll(t *testing.T) {
	env := setupServer(t)
	token, _ := env.login(t)

	created := env.createPoll(t, token)
	assert.Equal(t, []int64{0, 0, 0}, created.Votes)
	assert.False(t, created.Closed)

	var got poll.Snapshot
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/poll/"+created.ID, token, nil, &got))
	assert.Equal(t, created.ID, got.ID)

	var list listPollsResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/polls", token, nil, &list))
	require.Len(t, list.Polls, 1)

	var errBody map[string]string
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/poll/nope", token, nil, &errBody))
	assert.Equal(t, "poll_not_found", errBody["error"])
}

func TestCreatePollValidation(t *testing.T) {
	env := setupServer(t)
	token, _ := env.login(t)
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)

	bad := []createPollRequest{
		{Question: "", Options: []string{"a", "b"}, ExpiresAt: future},
		{Question: "q", Options: []string{"a"}, ExpiresAt: future},
		{Question: "q", Options: []string{"a", " "}, ExpiresAt: future},
		{Question: "q", Options: []string{"a", "b"}, ExpiresAt: "tomorrow"},
		{Question: "q", Options: []string{"a", "b"}, ExpiresAt: time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)},
		{Question: "q", Options: []string{"a", "b"}},
	}
	for _, req := range bad {
		var body map[string]string
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/v1/poll", token, req, &body), "%+v", req)
		assert.Equal(t, "invalid_input", body["error"])
	}
}

func TestVoteActions(t *testing.T) {
	env := setupServer(t)
	alice, _ := env.login(t)
	bob, _ := env.login(t)
	p := env.createPoll(t, alice)
	path := "/api/v1/poll/" + p.ID + "/vote"

	var res voteResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, path, alice, ballot(1), &res))
	assert.Equal(t, "voted", res.Action)
	assert.Equal(t, 1, res.VotedIndex)
	assert.True(t, res.OK)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, path, alice, ballot(1), &res))
	assert.Equal(t, "no_change", res.Action)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, path, alice, ballot(2), &res))
	assert.Equal(t, "changed_vote", res.Action)
	assert.Equal(t, "Vote changed successfully", res.Message)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, path, bob, ballot(2), &res))

	var snap poll.Snapshot
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/poll/"+p.ID, bob, nil, &snap))
	assert.Equal(t, []int64{0, 0, 2}, snap.Votes)
	require.NotNil(t, snap.VotedIndex)
	assert.Equal(t, 2, *snap.VotedIndex)
}

func TestVoteErrors(t *testing.T) {
	env := setupServer(t)
	token, _ := env.login(t)
	p := env.createPoll(t, token)

	require.NoError(t, env.store.Create(context.Background(), &poll.Poll{
		ID:        "closed-poll",
		Question:  "too late",
		Options:   []string{"a", "b"},
		ExpiresAt: time.Now().Add(-time.Minute),
		CreatedAt: time.Now().Add(-time.Hour),
	}))

	tests := []struct {
		name   string
		pollID string
		body   any
		status int
		code   string
	}{
		{"missing option", p.ID, map[string]any{}, http.StatusBadRequest, "invalid_input"},
		{"string option", p.ID, ballot("1"), http.StatusBadRequest, "invalid_input"},
		{"fractional option", p.ID, ballot(1.5), http.StatusBadRequest, "invalid_input"},
		{"out of range", p.ID, ballot(3), http.StatusBadRequest, "invalid_option"},
		{"huge", p.ID, ballot(1e12), http.StatusBadRequest, "invalid_option"},
		{"negative", p.ID, ballot(-1), http.StatusBadRequest, "invalid_option"},
		{"unknown poll", "missing", ballot(0), http.StatusNotFound, "poll_not_found"},
		{"closed poll", "closed-poll", ballot(0), http.StatusForbidden, "poll_closed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fresh, _ := env.login(t)
			var body map[string]string
			status := env.do(t, http.MethodPost, "/api/v1/poll/"+tt.pollID+"/vote", fresh, tt.body, &body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body["error"])
		})
	}
	assert.Zero(t, env.store.VoteCount(p.ID))
}

func TestVoteRateLimit(t *testing.T) {
	env := setupServer(t)
	token, _ := env.login(t)
	p := env.createPoll(t, token)
	path := "/api/v1/poll/" + p.ID + "/vote"

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, path, token, ballot(i%3), nil), "attempt %d", i+1)
	}
	var body map[string]string
	assert.Equal(t, http.StatusTooManyRequests, env.do(t, http.MethodPost, path, token, ballot(0), &body))
	assert.Equal(t, "rate_limited", body["error"])

	other, _ := env.login(t)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, path, other, ballot(0), nil))
}

func readEvent(t *testing.T, conn *websocket.Conn, kind broadcast.EventKind) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev struct {
			Event broadcast.EventKind `json:"event"`
			Data  map[string]any      `json:"data"`
			Actor string              `json:"actor"`
		}
		require.NoError(t, json.Unmarshal(data, &ev))
		if ev.Event == kind {
			ev.Data["_actor"] = ev.Actor
			return ev.Data
		}
	}
}

func TestBroadcastOverWebSocket(t *testing.T) {
	env := setupServer(t)
	token, userID := env.login(t)

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	presence := readEvent(t, conn, broadcast.PresenceChanged)
	assert.EqualValues(t, 1, presence["activeUsers"])

	var m metricsResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/metrics", "", nil, &m))
	assert.Equal(t, 1, m.ActiveUsers)

	p := env.createPoll(t, token)
	created := readEvent(t, conn, broadcast.PollCreated)
	assert.Equal(t, p.ID, created["id"])

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/poll/"+p.ID+"/vote", token, ballot(0), nil))
	updated := readEvent(t, conn, broadcast.PollUpdated)
	assert.Equal(t, []any{1.0, 0.0, 0.0}, updated["votes"])
	assert.Equal(t, userID, updated["_actor"])
}

func TestHealthAndReady(t *testing.T) {
	env := setupServer(t)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", "", nil, nil))
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/ready", "", nil, nil))
}

func TestMapError(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, mapError(poll.ErrStoreUnavailable).StatusCode())
	assert.Equal(t, http.StatusForbidden, mapError(vote.ErrPollClosed).StatusCode())
	assert.Equal(t, http.StatusInternalServerError, mapError(assert.AnError).StatusCode())
}
