package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"livepolls/internal/broadcast"
	"livepolls/internal/domain/poll"
	"livepolls/internal/domain/vote"
	jwtpkg "livepolls/internal/platform/jwt"
	"livepolls/internal/ratelimit"
)

type Handler struct {
	pollSvc *poll.Service
	voteSvc *vote.Service
	jwtMgr  *jwtpkg.Manager
	jwtTTL  time.Duration
	hub     *broadcast.Hub
	db      *sql.DB
}

// Deps are the collaborators the router is built from. DB may be nil, in
// which case /ready always reports unavailable.
type Deps struct {
	Polls   *poll.Service
	Votes   *vote.Service
	JWT     *jwtpkg.Manager
	JWTTTL  time.Duration
	Limiter *ratelimit.Limiter
	Hub     *broadcast.Hub
	DB      *sql.DB
	// WSConnectRate is the per-IP budget of /ws upgrades per minute.
	WSConnectRate int
}

func NewRouter(d Deps) http.Handler {
	h := &Handler{
		pollSvc: d.Polls,
		voteSvc: d.Votes,
		jwtMgr:  d.JWT,
		jwtTTL:  d.JWTTTL,
		hub:     d.Hub,
		db:      d.DB,
	}
	if h.jwtTTL <= 0 {
		h.jwtTTL = 24 * time.Hour
	}
	wsRate := d.WSConnectRate
	if wsRate <= 0 {
		wsRate = 30
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger)
	r.Use(CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", h.handleReady)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// The upgraded connection outlives any request timeout, so /ws sits
	// outside the Timeout middleware.
	r.With(ThrottleIP(rate.Every(time.Minute/time.Duration(wsRate)), wsRate)).Get("/ws", h.hub.ServeWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Timeout(60 * time.Second))

		r.Get("/auth/login", h.handleLogin)
		r.Get("/metrics", h.handleMetrics)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(d.JWT))

			r.Get("/polls", h.handleListPolls)
			r.Post("/poll", h.handleCreatePoll)
			r.Get("/poll/{id}", h.handleGetPoll)
			r.With(RateLimitVotes(d.Limiter)).Post("/poll/{id}/vote", h.handleVote)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "db_unavailable",
			"message": "database not configured",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "db_unavailable",
			"message": "database not ready",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type metricsResponse struct {
	Message     string `json:"message"`
	ActiveUsers int    `json:"activeUsers"`
}

// @Summary     Live connection count
// @Tags        system
// @Produce     json
// @Success     200  {object}  metricsResponse
// @Router      /metrics [get]
func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metricsResponse{
		Message:     "Application metrics",
		ActiveUsers: h.hub.ActiveUsers(),
	})
}
