// Package httpapi exposes the review pipeline over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/escargot-labs/reviewbot"
)

// Server serves the review API. Whole review requests pass through a
// counting permit so a busy instance queues new requests instead of
// contending for the model-serving resource.
type Server struct {
	reviewer reviewbot.Reviewer
	gate     *semaphore.Weighted
	logger   *slog.Logger
	srv      *http.Server
}

// New creates a Server. maxConcurrent is the number of review requests
// allowed to execute at once; values below 1 are treated as 1.
func New(addr string, reviewer reviewbot.Reviewer, maxConcurrent int64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	s := &Server{
		reviewer: reviewer,
		gate:     semaphore.NewWeighted(maxConcurrent),
		logger:   logger,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /review", s.handleReview)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe blocks serving requests until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server starting", "addr", s.srv.Addr)
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// reviewResponse is the success payload of POST /review.
type reviewResponse struct {
	Comments []reviewbot.AnchoredComment `json:"comments"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewbot.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}
	if req.BaseSHA == "" || req.HeadSHA == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "base_sha and head_sha are required"})
		return
	}

	// Wait for a permit rather than failing: review latency is additive,
	// never contended.
	if err := s.gate.Acquire(r.Context(), 1); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: "request cancelled while queued"})
		return
	}
	defer s.gate.Release(1)

	start := time.Now()
	comments, err := s.reviewer.Review(r.Context(), req)
	if err != nil {
		s.writeReviewError(w, req, err)
		return
	}
	s.logger.Info("review request served",
		"pr", req.PullRequestNumber, "comments", len(comments), "elapsed", time.Since(start))
	if comments == nil {
		comments = []reviewbot.AnchoredComment{}
	}
	writeJSON(w, http.StatusOK, reviewResponse{Comments: comments})
}

func (s *Server) writeReviewError(w http.ResponseWriter, req reviewbot.ReviewRequest, err error) {
	s.logger.Error("review request failed", "pr", req.PullRequestNumber, "err", err)
	switch {
	case errors.Is(err, reviewbot.ErrRevisionNotFound):
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: err.Error()})
	case errors.Is(err, reviewbot.ErrMalformedDiff):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
	case errors.Is(err, reviewbot.ErrTimeout), errors.Is(err, reviewbot.ErrModelUnavailable):
		writeJSON(w, http.StatusBadGateway, errorResponse{Detail: "model backend unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "internal error"})
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
