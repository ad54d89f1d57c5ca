// Package server exposes playlist parsing over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agleyzer/m3ucheck/internal/crosscheck"
	"github.com/agleyzer/m3ucheck/internal/diag"
	"github.com/agleyzer/m3ucheck/internal/metrics"
	"github.com/agleyzer/m3ucheck/internal/parser"
	"github.com/agleyzer/m3ucheck/internal/playlist"
	"github.com/agleyzer/m3ucheck/internal/validate"
)

// Parse modes accepted by the mode query parameter.
const (
	ModeTolerant = "tolerant"
	ModeStrict   = "strict"
	modeStream   = "stream"
)

// Server serves the parse API
type Server struct {
	config     Config
	logger     *slog.Logger
	httpServer *http.Server
}

// New creates a new HTTP server. The config must have been validated.
func New(config Config, logger *slog.Logger) *Server {
	return &Server{
		config: config,
		logger: logger,
	}
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/parse", s.handleParse).Methods(http.MethodPost)
	r.HandleFunc("/segments", s.handleSegments).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.Use(s.metricsMiddleware)

	return s.loggingMiddleware(r)
}

// Start starts the HTTP server and blocks until ctx is done
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "port", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}

	// Graceful shutdown
	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}

// parseResponse is the body of a /parse response.
type parseResponse struct {
	OK          bool               `json:"ok"`
	Playlist    *playlist.Playlist `json:"playlist"`
	Stats       *playlist.Stats    `json:"stats,omitempty"`
	Diagnostics []diag.Warning     `json:"diagnostics"`
	Error       string             `json:"error,omitempty"`
}

// handleParse parses the request body as a whole document
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mode := q.Get("mode")
	if mode == "" {
		mode = ModeTolerant
	}
	if mode != ModeTolerant && mode != ModeStrict {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown mode %q", mode))
		return
	}

	content, err := s.readBody(w, r)
	if err != nil {
		s.writeBodyError(w, err)
		return
	}

	start := time.Now()
	res := parser.TryParse(content, s.parseOptions())

	resp := parseResponse{
		OK:          res.OK(),
		Playlist:    res.Playlist,
		Diagnostics: res.Warnings,
	}
	status := http.StatusOK

	if first, failed := diag.FirstError(res.Warnings); failed && mode == ModeStrict {
		resp.Playlist = nil
		resp.Error = diag.NewParseError(first).Error()
		status = http.StatusUnprocessableEntity
	}

	segments := 0
	if res.Playlist != nil {
		segments = len(res.Playlist.Segments)
	}
	metrics.RecordParse(mode, resp.OK, segments, time.Since(start))

	if resp.Playlist != nil && flag(q.Get("crosscheck")) {
		extra := crosscheck.Compare(content, resp.Playlist)
		for _, d := range extra {
			metrics.RecordDiagnostic(d)
		}
		resp.Diagnostics = append(resp.Diagnostics, extra...)
	}

	if resp.Playlist != nil && flag(q.Get("validate")) {
		err := validate.Validate(resp.Playlist)
		metrics.RecordValidation(err)
		if err != nil {
			resp.OK = false
			resp.Error = err.Error()
			status = http.StatusUnprocessableEntity
		}
	}

	if resp.Playlist != nil {
		stats := resp.Playlist.Stats()
		resp.Stats = &stats
	}
	if resp.Diagnostics == nil {
		resp.Diagnostics = []diag.Warning{}
	}

	s.writeJSON(w, status, resp)
}

// handleSegments streams segments as newline-delimited JSON
func (s *Server) handleSegments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)

	start := time.Now()
	sc := parser.NewSegmentScanner(r.Body, s.parseOptions())

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)

	for sc.Next(r.Context()) {
		if err := enc.Encode(sc.Segment()); err != nil {
			s.logger.Warn("failed to write segment", "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	err := sc.Err()
	metrics.RecordParse(modeStream, err == nil, sc.Count(), time.Since(start))

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		s.logger.Debug("segment stream cancelled", "segments", sc.Count())
	default:
		s.logger.Warn("segment stream failed", "segments", sc.Count(), "error", err)
	}
}

// handleHealth serves health check information
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":  "ok",
		"version": s.config.Version,
	}

	s.writeJSON(w, http.StatusOK, health)
}

// parseOptions returns the configured options with diagnostics routed to
// metrics and the debug log.
func (s *Server) parseOptions() *parser.Options {
	opts := s.config.Options
	next := opts.OnWarning
	opts.OnWarning = func(w diag.Warning) {
		metrics.RecordDiagnostic(w)
		s.logger.Debug("diagnostic", "line", w.Line, "severity", w.Severity, "message", w.Message)
		if next != nil {
			next(w)
		}
	}
	return &opts
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) (string, error) {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Server) writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
		return
	}
	s.writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read body: %v", err))
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

// flag reports whether a query parameter is switched on.
func flag(v string) bool {
	if v == "" {
		return false
	}
	on, err := strconv.ParseBool(strings.ToLower(v))
	return err == nil && on
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap the response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)

		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"status", wrapped.statusCode,
			"duration", duration,
		)
	})
}

// metricsMiddleware records Prometheus metrics for API requests
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush passes through to the wrapped writer so streamed responses are
// delivered as they are written.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
