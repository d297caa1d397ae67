// Package httpapi exposes the session registry over HTTP and WebSocket.
//
// The route table maps one-to-one onto the registry operations:
//
//	POST /v1/messages                     start a session
//	POST /v1/messages/import              import an exported event log
//	POST /v1/messages/{id}/events         push one event or a batch
//	POST /v1/messages/{id}/preview        profile against in-progress text
//	POST /v1/messages/{id}/finalize       profile against final text (destructive)
//	POST /v1/messages/{id}/snapshot       profile + event log, session kept
//	POST /v1/messages/{id}/respond        finalize and generate a model response
//	GET  /v1/messages/{id}/events         export the event log
//	GET  /v1/messages/{id}/stream         WebSocket event ingestion
//
// plus /healthz, /readyz, and /metrics. Error bodies are {"error": message};
// unknown sessions map to 404 and malformed imports to 400.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/varenhold/scriven/internal/health"
	"github.com/varenhold/scriven/internal/observe"
	"github.com/varenhold/scriven/internal/registry"
	"github.com/varenhold/scriven/internal/responder"
	"github.com/varenhold/scriven/pkg/event"
	"github.com/varenhold/scriven/pkg/profile"
)

// shutdownTimeout bounds the graceful drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

// Server wires the registry, the optional responder, and the observability
// stack into one HTTP handler.
type Server struct {
	registry  *registry.Registry
	responder *responder.Responder
	metrics   *observe.Metrics
	handler   http.Handler

	listenAddr string
}

// Config holds the dependencies and settings for [New].
type Config struct {
	// ListenAddr is the TCP address Serve binds to.
	ListenAddr string

	// Registry is the session table. Required.
	Registry *registry.Registry

	// Responder may be nil; the respond endpoint then reports 503.
	Responder *responder.Responder

	// Metrics is the instrument set. Required.
	Metrics *observe.Metrics

	// CORSOrigins lists allowed browser origins. Empty disables CORS.
	CORSOrigins []string
}

// New builds the server and its route table.
func New(cfg Config) *Server {
	s := &Server{
		registry:   cfg.Registry,
		responder:  cfg.Responder,
		metrics:    cfg.Metrics,
		listenAddr: cfg.ListenAddr,
	}

	hc := []health.Checker{
		{Name: "registry", Check: func(context.Context) error {
			if s.registry == nil {
				return errors.New("registry not initialised")
			}
			return nil
		}},
	}
	hh := health.New(hc...)

	r := chi.NewRouter()
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
		}))
	}
	r.Use(observe.Middleware(cfg.Metrics))

	r.Get("/healthz", hh.Healthz)
	r.Get("/readyz", hh.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/messages", func(r chi.Router) {
		r.Post("/", s.handleStart)
		r.Post("/import", s.handleImport)
		r.Route("/{id}", func(r chi.Router) {
			r.Post("/events", s.handlePushEvents)
			r.Get("/events", s.handleExportEvents)
			r.Post("/preview", s.handlePreview)
			r.Post("/finalize", s.handleFinalize)
			r.Post("/snapshot", s.handleSnapshot)
			r.Post("/respond", s.handleRespond)
			r.Get("/stream", s.handleStream)
		})
	})

	s.handler = r
	return s
}

// Handler returns the composed route handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.listenAddr,
		Handler: s.handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	slog.Info("api server listening", "addr", s.listenAddr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("httpapi: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpapi: shutdown: %w", err)
	}
	return nil
}

// ── Handlers ─────────────────────────────────────────────────────────────────

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id := s.registry.Start()
	s.metrics.SessionsStarted.Add(r.Context(), 1)
	s.metrics.SessionsActive.Add(r.Context(), 1)

	writeJSON(w, http.StatusCreated, map[string]string{"message_id": id.String()})
}

func (s *Server) handlePushEvents(w http.ResponseWriter, r *http.Request) {
	id, err := registry.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read body: " + err.Error()})
		return
	}

	events, err := decodeEventBody(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	for _, e := range events {
		if err := s.registry.Push(id, e); err != nil {
			s.writeError(w, err)
			return
		}
		s.metrics.EventsIngested.Add(r.Context(), 1,
			metric.WithAttributes(attribute.String("type", string(e.Kind()))))
	}

	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": len(events)})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id, err := registry.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	text, ok := readTextBody(w, r)
	if !ok {
		return
	}

	ctx, span := observe.StartSpan(r.Context(), "registry.preview")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", id.String()))

	start := time.Now()
	p, err := s.registry.Preview(id, text)
	if err != nil {
		observe.RecordError(span, err)
		s.writeError(w, err)
		return
	}
	s.metrics.PreviewDuration.Record(ctx, time.Since(start).Seconds())

	writeProfile(w, http.StatusOK, p)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	id, err := registry.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	text, ok := readTextBody(w, r)
	if !ok {
		return
	}

	ctx, span := observe.StartSpan(r.Context(), "registry.finalize")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", id.String()))

	start := time.Now()
	p, err := s.registry.Finalize(id, text)
	if err != nil {
		observe.RecordError(span, err)
		s.writeError(w, err)
		return
	}
	s.metrics.FinalizeDuration.Record(ctx, time.Since(start).Seconds())
	s.metrics.ProfilesFinalized.Add(ctx, 1)
	s.metrics.SessionsActive.Add(ctx, -1)

	writeProfile(w, http.StatusOK, p)
}

func (s *Server) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	id, err := registry.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := s.registry.ExportEvents(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read body: " + err.Error()})
		return
	}

	ctx, span := observe.StartSpan(r.Context(), "registry.import")
	defer span.End()

	id, err := s.registry.ImportEvents(body)
	if err != nil {
		observe.RecordError(span, err)
		s.metrics.ImportsRejected.Add(ctx, 1)
		s.writeError(w, err)
		return
	}
	span.SetAttributes(attribute.String("session_id", id.String()))
	s.metrics.SessionsStarted.Add(ctx, 1)
	s.metrics.SessionsActive.Add(ctx, 1)

	writeJSON(w, http.StatusCreated, map[string]string{"message_id": id.String()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := registry.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	text, ok := readTextBody(w, r)
	if !ok {
		return
	}

	snap, err := s.registry.ExportSnapshot(id, text)
	if err != nil {
		s.writeError(w, err)
		return
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	id, err := registry.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	text, ok := readTextBody(w, r)
	if !ok {
		return
	}

	if s.responder == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": responder.ErrNotConfigured.Error()})
		return
	}

	ctx, span := observe.StartSpan(r.Context(), "registry.finalize")
	span.SetAttributes(attribute.String("session_id", id.String()))

	start := time.Now()
	p, err := s.registry.Finalize(id, text)
	if err != nil {
		observe.RecordError(span, err)
		span.End()
		s.writeError(w, err)
		return
	}
	s.metrics.FinalizeDuration.Record(ctx, time.Since(start).Seconds())
	s.metrics.ProfilesFinalized.Add(ctx, 1)
	s.metrics.SessionsActive.Add(ctx, -1)
	span.End()

	genCtx, genSpan := observe.StartSpan(r.Context(), "responder.generate")
	defer genSpan.End()

	genStart := time.Now()
	answer, err := s.responder.Generate(genCtx, text, p)
	s.metrics.ResponderDuration.Record(genCtx, time.Since(genStart).Seconds())
	if err != nil {
		observe.RecordError(genSpan, err)
		s.metrics.ResponderErrors.Add(genCtx, 1)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"profile":  p,
		"response": answer,
	})
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// decodeEventBody accepts either a single tagged-envelope event or an array
// of them.
func decodeEventBody(body []byte) ([]event.Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty event body")
	}
	if trimmed[0] == '[' {
		return event.UnmarshalList(trimmed)
	}
	e, err := event.Unmarshal(trimmed)
	if err != nil {
		return nil, err
	}
	return []event.Event{e}, nil
}

// textRequest is the body shape of preview/finalize/snapshot/respond.
type textRequest struct {
	Text string `json:"text"`
}

// readTextBody decodes the {"text": ...} request body, writing a 400 on
// failure. The second return value reports whether decoding succeeded.
func readTextBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "decode body: " + err.Error()})
		return "", false
	}
	return req.Text, true
}

// writeError maps registry sentinel errors to their status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, registry.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, registry.ErrBadInput):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeProfile renders the profile pretty-printed, the canonical output
// format shared with the CLI.
func writeProfile(w http.ResponseWriter, status int, p profile.InputProfile) {
	data, err := p.Render()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
