package api

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"livepolls/internal/domain/vote"
	"livepolls/internal/metrics"
	"livepolls/internal/platform/apperr"
)

type voteRequest struct {
	OptionIdx *float64 `json:"optionIdx"`
}

type voteResponse struct {
	OK         bool   `json:"ok"`
	Action     string `json:"action"`
	Message    string `json:"message"`
	VotedIndex int    `json:"votedIndex"`
}

var actionMessages = map[vote.Action]string{
	vote.ActionVoted:     "Vote recorded successfully",
	vote.ActionChanged:   "Vote changed successfully",
	vote.ActionUnchanged: "No change in vote",
}

// @Summary     Vote for an option
// @Tags        votes
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id       path      string       true  "Poll ID"
// @Param       request  body      voteRequest  true  "Vote payload"
// @Success     200      {object}  voteResponse
// @Failure     400      {object}  map[string]string  "invalid body or option"
// @Failure     401      {object}  map[string]string  "unauthorized"
// @Failure     403      {object}  map[string]string  "poll closed"
// @Failure     404      {object}  map[string]string  "not found"
// @Failure     429      {object}  map[string]string  "rate limited"
// @Failure     503      {object}  map[string]string  "store unavailable, retry"
// @Router      /poll/{id}/vote [post]
func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.OptionIdx == nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "optionIdx must be a number", nil))
		return
	}
	f := *req.OptionIdx
	if f != math.Trunc(f) {
		errorResponse(w, apperr.BadRequest("invalid_input", "optionIdx must be an integer", nil))
		return
	}
	idx := -1
	if f >= 0 && f <= math.MaxInt32 {
		idx = int(f)
	}

	res, err := h.voteSvc.Submit(r.Context(), chi.URLParam(r, "id"), userIDFromCtx(r), idx)
	if err != nil {
		errorResponse(w, err)
		return
	}
	metrics.IncVote(string(res.Action))

	writeJSON(w, http.StatusOK, voteResponse{
		OK:         true,
		Action:     string(res.Action),
		Message:    actionMessages[res.Action],
		VotedIndex: res.VotedIndex,
	})
}
