// Package api serves the operator HTTP surface: health, prometheus metrics
// and a small token-guarded JSON API over running jobs and download history.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/repository"
	"media-courier-bot/internal/jobs"
)

type Server struct {
	registry *jobs.Registry
	history  repository.HistoryRepository
	auth     *AuthManager
	log      *zerolog.Logger
}

func NewServer(registry *jobs.Registry, history repository.HistoryRepository, auth *AuthManager, logger *zerolog.Logger) *Server {
	return &Server{registry: registry, history: history, auth: auth, log: logger}
}

// Router builds the chi router with the shared middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), Timeout(15*time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/token", s.handleToken)
		r.Group(func(r chi.Router) {
			r.Use(RequireBearer(s.auth, s.log))
			r.Get("/jobs", s.handleJobs)
			r.Get("/history/{convID}", s.handleHistory)
		})
	})
	return r
}

// ListenAndServe runs until ctx is canceled, then drains for up to five seconds.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info().Int("port", port).Msg("admin http server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type tokenRequest struct {
	APIKey string `json:"api_key"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if !s.auth.CheckAPIKey(req.APIKey) {
		writeError(w, http.StatusUnauthorized, "invalid api key")
		return
	}
	tok, exp, err := s.auth.Mint("operator")
	if err != nil {
		s.log.Error().Err(err).Msg("mint admin token")
		writeError(w, http.StatusInternalServerError, "could not mint token")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: tok, ExpiresAt: exp.UTC()})
}

type jobView struct {
	SessionID      string               `json:"session_id"`
	ConversationID int64                `json:"conversation_id"`
	Kind           string               `json:"kind"`
	Title          string               `json:"title"`
	StartedAt      time.Time            `json:"started_at"`
	Label          string               `json:"label,omitempty"`
	Total          int                  `json:"total"`
	Completed      int                  `json:"completed"`
	Failed         int                  `json:"failed"`
	Sample         model.ProgressSample `json:"sample"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	list := s.registry.List()
	if c, ok := ClaimsFrom(r.Context()); ok {
		s.log.Debug().Str("subject", c.Subject).Int("jobs", len(list)).Msg("jobs listed")
	}
	out := make([]jobView, 0, len(list))
	for _, j := range list {
		snap := j.Snapshot()
		out = append(out, jobView{
			SessionID:      j.SessionID,
			ConversationID: j.ConversationID,
			Kind:           j.Kind,
			Title:          j.Title,
			StartedAt:      j.StartedAt.UTC(),
			Label:          snap.Label,
			Total:          snap.Total,
			Completed:      snap.Completed,
			Failed:         snap.Failed,
			Sample:         snap.Sample,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	conv, err := strconv.ParseInt(chi.URLParam(r, "convID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	recs, err := s.history.ListRecent(r.Context(), conv, limit)
	if err != nil {
		s.log.Error().Err(err).Int64("conv_id", conv).Msg("list history")
		writeError(w, http.StatusInternalServerError, "could not load history")
		return
	}
	if recs == nil {
		recs = []*model.DownloadRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
