package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"livepolls/internal/domain/poll"
	"livepolls/internal/platform/apperr"
)

type createPollRequest struct {
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	ExpiresAt string   `json:"expiresAt"`
}

type createPollResponse struct {
	ID   string         `json:"id"`
	Poll *poll.Snapshot `json:"poll"`
}

type listPollsResponse struct {
	Polls []poll.Snapshot `json:"polls"`
}

// @Summary     Create a poll
// @Tags        polls
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       request  body      createPollRequest  true  "Poll payload"
// @Success     201      {object}  createPollResponse
// @Failure     400      {object}  map[string]string  "invalid payload"
// @Failure     401      {object}  map[string]string  "unauthorized"
// @Failure     503      {object}  map[string]string  "store unavailable"
// @Router      /poll [post]
func (h *Handler) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	in := poll.CreateInput{Question: req.Question, Options: req.Options}
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339Nano, req.ExpiresAt)
		if err != nil {
			errorResponse(w, poll.ErrInvalidExpiry)
			return
		}
		in.ExpiresAt = t
	}

	snap, err := h.pollSvc.Create(r.Context(), in, userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createPollResponse{ID: snap.ID, Poll: snap})
}

// @Summary     List polls
// @Tags        polls
// @Security    BearerAuth
// @Produce     json
// @Success     200  {object}  listPollsResponse
// @Failure     401  {object}  map[string]string  "unauthorized"
// @Router      /polls [get]
func (h *Handler) handleListPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.pollSvc.List(r.Context(), userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listPollsResponse{Polls: polls})
}

// @Summary     Get a poll snapshot
// @Tags        polls
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      string  true  "Poll ID"
// @Success     200  {object}  poll.Snapshot
// @Failure     404  {object}  map[string]string  "not found"
// @Router      /poll/{id} [get]
func (h *Handler) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	snap, err := h.pollSvc.Get(r.Context(), chi.URLParam(r, "id"), userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
