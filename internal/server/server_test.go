package server

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agleyzer/m3ucheck/internal/parser"
	"github.com/agleyzer/m3ucheck/internal/segment"
)

const testPlaylist = `#EXTM3U
#EXT-X-SESSION-DATA:DATA-ID="s1"
#EXTINF:-1 tvg-id="X" tvg-logo="http://logo.example/x.png",Channel
http://a.test/seg.ts
#EXTINF:10,Clip
http://a.test/clip.ts
`

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func createTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := Config{Options: parser.DefaultOptions(), Version: "test"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Failed to validate config: %v", err)
	}
	return New(cfg, createTestLogger())
}

func postParse(t *testing.T, srv *Server, query, body string) (*http.Response, parseResponse) {
	t.Helper()

	req := httptest.NewRequest("POST", "/parse"+query, strings.NewReader(body))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	resp := w.Result()
	var out parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp, out
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected defaults to validate, got %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Expected port %d, got %d", DefaultPort, cfg.Port)
	}
	if cfg.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Errorf("Expected max body %d, got %d", DefaultMaxBodyBytes, cfg.MaxBodyBytes)
	}

	bad := []Config{
		{Port: 70000},
		{MaxBodyBytes: -1},
		{Options: parser.Options{MaxSegments: -1}},
	}
	for _, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("Expected error for %+v", c)
		}
	}
}

func TestHandleParse_Tolerant(t *testing.T) {
	srv := createTestServer(t)

	resp, out := postParse(t, srv, "", testPlaylist)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", ct)
	}
	if !out.OK {
		t.Error("Expected ok response")
	}
	if out.Playlist == nil || len(out.Playlist.Segments) != 2 {
		t.Fatalf("Expected 2 segments, got %+v", out.Playlist)
	}
	if out.Playlist.Segments[0].Duration != segment.Unknown {
		t.Errorf("Expected live duration, got %v", out.Playlist.Segments[0].Duration)
	}
	if out.Stats == nil || out.Stats.LiveSegments != 1 || out.Stats.TotalDuration != 10 {
		t.Errorf("Unexpected stats: %+v", out.Stats)
	}
	if len(out.Diagnostics) != 0 {
		t.Errorf("Expected no diagnostics, got %v", out.Diagnostics)
	}
}

func TestHandleParse_TolerantReportsErrors(t *testing.T) {
	srv := createTestServer(t)

	resp, out := postParse(t, srv, "?mode=tolerant", "#EXTM3U\n#EXTINF:1,a\n#EXTINF:2,b\nhttp://a.test/b.ts\n#EXTINF:3,c\nhttp://a.test/c.ts\n")

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if out.OK {
		t.Error("Expected failed parse")
	}
	if len(out.Diagnostics) != 1 || out.Diagnostics[0].Line != 3 {
		t.Errorf("Expected one diagnostic at line 3, got %v", out.Diagnostics)
	}
	if out.Playlist == nil || len(out.Playlist.Segments) != 1 {
		t.Errorf("Expected partial playlist with 1 segment, got %+v", out.Playlist)
	}
}

func TestHandleParse_Strict(t *testing.T) {
	srv := createTestServer(t)

	resp, out := postParse(t, srv, "?mode=strict", "#EXTINF:1,a\nhttp://a.test/a.ts\n")

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", resp.StatusCode)
	}
	if out.Playlist != nil {
		t.Error("Expected no playlist in strict failure")
	}
	if !strings.Contains(out.Error, "#EXTM3U") {
		t.Errorf("Expected header error, got %q", out.Error)
	}
}

func TestHandleParse_Validate(t *testing.T) {
	srv := createTestServer(t)

	resp, out := postParse(t, srv, "?validate=1", testPlaylist)
	if resp.StatusCode != http.StatusOK || !out.OK {
		t.Errorf("Expected valid playlist, got %d %q", resp.StatusCode, out.Error)
	}

	resp, out = postParse(t, srv, "?validate=true", "#EXTM3U\n#EXTINF:1,a\nftp://example.com\n")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", resp.StatusCode)
	}
	if out.OK || !strings.Contains(out.Error, "invalid or insecure URI") {
		t.Errorf("Expected URI validation error, got %q", out.Error)
	}
}

func TestHandleParse_Crosscheck(t *testing.T) {
	srv := createTestServer(t)

	body := "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXTINF:10,\nhttp://a.test/0.ts\n#EXTINF:10,\nhttp://a.test/1.ts\n"
	resp, out := postParse(t, srv, "?crosscheck=1", body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if len(out.Diagnostics) != 0 {
		t.Errorf("Expected decoders to agree, got %v", out.Diagnostics)
	}
}

func TestHandleParse_BadMode(t *testing.T) {
	srv := createTestServer(t)

	req := httptest.NewRequest("POST", "/parse?mode=lenient", strings.NewReader(testPlaylist))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandleParse_BodyTooLarge(t *testing.T) {
	cfg := Config{Options: parser.DefaultOptions(), MaxBodyBytes: 16}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Failed to validate config: %v", err)
	}
	srv := New(cfg, createTestLogger())

	req := httptest.NewRequest("POST", "/parse", strings.NewReader(testPlaylist))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", w.Code)
	}
}

func TestHandleParse_MethodNotAllowed(t *testing.T) {
	srv := createTestServer(t)

	req := httptest.NewRequest("GET", "/parse", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestHandleSegments(t *testing.T) {
	srv := createTestServer(t)

	req := httptest.NewRequest("POST", "/segments", strings.NewReader(testPlaylist))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("Expected Content-Type 'application/x-ndjson', got '%s'", ct)
	}

	var uris []string
	scanner := bufio.NewScanner(w.Body)
	for scanner.Scan() {
		var seg struct {
			URI      string  `json:"uri"`
			Duration float64 `json:"duration"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &seg); err != nil {
			t.Fatalf("Failed to decode line %q: %v", scanner.Text(), err)
		}
		uris = append(uris, seg.URI)
	}

	if len(uris) != 2 || uris[0] != "http://a.test/seg.ts" || uris[1] != "http://a.test/clip.ts" {
		t.Errorf("Unexpected segments: %v", uris)
	}
}

func TestHandleSegments_Cancelled(t *testing.T) {
	srv := createTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest("POST", "/segments", strings.NewReader(testPlaylist)).WithContext(ctx)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if strings.TrimSpace(w.Body.String()) != "" {
		t.Errorf("Expected no segments after cancellation, got %q", w.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	srv := createTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	srv.handleHealth(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var health map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if health["status"] != "ok" {
		t.Errorf("Expected status 'ok', got '%v'", health["status"])
	}
	if health["version"] != "test" {
		t.Errorf("Expected version 'test', got '%v'", health["version"])
	}
}

func TestHandleMetrics(t *testing.T) {
	srv := createTestServer(t)

	// Generate some parser activity first
	postParse(t, srv, "", testPlaylist)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	for _, name := range []string{"m3ucheck_parses_total", "m3ucheck_http_requests_total"} {
		if !strings.Contains(w.Body.String(), name) {
			t.Errorf("Expected metric %s in output", name)
		}
	}
}

func TestLoggingMiddleware(t *testing.T) {
	srv := createTestServer(t)

	// Create a test handler
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("test"))
	})

	wrapped := srv.loggingMiddleware(handler)

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	// Check that handler was called
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "test" {
		t.Errorf("Expected body 'test', got '%s'", w.Body.String())
	}
}

func TestResponseWriter_CapturesStatusCode(t *testing.T) {
	wrapped := &responseWriter{
		ResponseWriter: httptest.NewRecorder(),
		statusCode:     http.StatusOK,
	}

	wrapped.WriteHeader(http.StatusNotFound)

	if wrapped.statusCode != http.StatusNotFound {
		t.Errorf("Expected status code 404, got %d", wrapped.statusCode)
	}
}

func TestResponseWriter_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	wrapped.Flush()

	if !rec.Flushed {
		t.Error("Expected flush to reach the underlying writer")
	}
}

func TestServer_Integration(t *testing.T) {
	srv := New(Config{Options: parser.DefaultOptions(), MaxBodyBytes: DefaultMaxBodyBytes}, createTestLogger()) // Port 0 for automatic port assignment

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Start server in background
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(ctx)
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	// Server should be running, cancel context to stop it
	cancel()

	// Wait for server to stop
	select {
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			t.Errorf("Expected nil or ErrServerClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Server did not stop within timeout")
	}
}

func TestHandleParse_ConcurrentRequests(t *testing.T) {
	srv := createTestServer(t)
	handler := srv.Handler()

	var wg sync.WaitGroup
	errs := make(chan string, 20)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			req := httptest.NewRequest("POST", "/parse", strings.NewReader(testPlaylist))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			var out parseResponse
			if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
				errs <- err.Error()
				return
			}
			if out.Playlist == nil || len(out.Playlist.Segments) != 2 {
				errs <- "wrong segment count"
			}
		}()
	}

	wg.Wait()
	close(errs)

	for e := range errs {
		t.Error(e)
	}
}
