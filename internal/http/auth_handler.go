package api

import (
	"net/http"

	"github.com/google/uuid"

	"livepolls/internal/platform/apperr"
)

type loginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// handleLogin issues an anonymous identity: a fresh user id and a token
// bound to it. Every call yields a new user.
//
// @Summary     Anonymous login
// @Tags        auth
// @Produce     json
// @Success     200  {object}  loginResponse
// @Failure     500  {object}  map[string]string  "server error"
// @Router      /auth/login [get]
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	userID := uuid.NewString()
	token, err := h.jwtMgr.Generate(userID, h.jwtTTL)
	if err != nil {
		errorResponse(w, apperr.Internal("token_error", "could not issue token", err))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, UserID: userID})
}
