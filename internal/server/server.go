package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/audiolibrelab/retake/internal/metrics"
	"github.com/audiolibrelab/retake/internal/session"
)

// Server exposes read-only session status over HTTP so a recording
// session can be watched from another device. It never mutates the
// recorder; every handler works on snapshots.
type Server struct {
	rec  *session.Recorder
	met  *metrics.Metrics
	port string
}

// SegmentInfo describes one committed timeline entry.
type SegmentInfo struct {
	Index    int     `json:"index"` // 1-based, matching the command surface
	ID       string  `json:"id"`
	Samples  int     `json:"samples"`
	Duration float64 `json:"duration_seconds"`
}

// SegmentsResponse is the JSON response for the segments endpoint.
type SegmentsResponse struct {
	Segments []SegmentInfo `json:"segments"`
	Total    float64       `json:"total_seconds"`
}

// New creates a status server around a recorder.
func New(rec *session.Recorder, met *metrics.Metrics, port string) *Server {
	return &Server{rec: rec, met: met, port: port}
}

// Start runs the HTTP server. It blocks until the server fails.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("Status server listening", "port", s.port)
	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("status server failed: %w", err)
	}
	return nil
}

// Routes builds the HTTP router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/segments", s.handleSegments)
	r.Method(http.MethodGet, "/metrics", s.met.Handler(func() {
		s.met.SetTimelineSeconds(s.rec.TotalDuration())
	}))

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.rec.Status())
}

func (s *Server) handleSegments(w http.ResponseWriter, r *http.Request) {
	snapshot := s.rec.Snapshot()

	resp := SegmentsResponse{
		Segments: make([]SegmentInfo, len(snapshot.Segments)),
		Total:    snapshot.Duration(),
	}
	for i, seg := range snapshot.Segments {
		resp.Segments[i] = SegmentInfo{
			Index:    i + 1,
			ID:       seg.ID,
			Samples:  len(seg.Samples),
			Duration: seg.Duration(snapshot.SampleRate),
		}
	}

	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
