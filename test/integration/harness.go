// Package integration provides integration testing utilities for m3ucheck.
package integration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestHarness manages the test environment for integration tests.
type TestHarness struct {
	t          *testing.T
	httpServer *http.Server
	httpPort   int
	binaryPath string
	serveCmd   *exec.Cmd
	servePort  int
	tempDir    string
	cancel     context.CancelFunc
}

// NewTestHarness creates a new test harness. The test is skipped when the
// m3ucheck binary has not been built.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	h := &TestHarness{
		t:         t,
		httpPort:  findAvailablePort(t),
		servePort: findAvailablePort(t),
		tempDir:   t.TempDir(),
	}
	h.binaryPath = h.findBinary()

	return h
}

// StartHTTPServer starts an HTTP server serving files from the harness
// directory.
func (h *TestHarness) StartHTTPServer() {
	h.t.Helper()

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(h.tempDir)))

	h.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", h.httpPort),
		Handler: mux,
	}

	// Start server in goroutine
	go func() {
		if err := h.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.t.Logf("HTTP server error: %v", err)
		}
	}()

	// Wait for server to be ready
	h.waitForServer(fmt.Sprintf("http://localhost:%d", h.httpPort), 5*time.Second)
	h.t.Logf("HTTP server started on port %d", h.httpPort)
}

// AddPlaylist writes a playlist into the harness directory and returns its
// file path.
func (h *TestHarness) AddPlaylist(content, name string) string {
	h.t.Helper()

	path := filepath.Join(h.tempDir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		h.t.Fatalf("failed to write test playlist: %v", err)
	}
	return path
}

// PlaylistURL returns the URL of a playlist served by the harness.
func (h *TestHarness) PlaylistURL(name string) string {
	return fmt.Sprintf("http://localhost:%d/%s", h.httpPort, name)
}

// Result is the outcome of one m3ucheck run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes m3ucheck with args and waits for it to finish.
func (h *TestHarness) Run(stdin string, args ...string) Result {
	h.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, h.binaryPath, args...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	var exitErr *exec.ExitError
	code := 0
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		code = exitErr.ExitCode()
	default:
		h.t.Fatalf("failed to run m3ucheck: %v", err)
	}

	return Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: code}
}

// StartServe starts m3ucheck in HTTP service mode.
func (h *TestHarness) StartServe() {
	h.t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	h.serveCmd = exec.CommandContext(ctx, h.binaryPath,
		"-serve",
		"-port", fmt.Sprintf("%d", h.servePort),
	)

	// Capture output for debugging
	h.serveCmd.Stdout = os.Stdout
	h.serveCmd.Stderr = os.Stderr

	if err := h.serveCmd.Start(); err != nil {
		h.t.Fatalf("failed to start m3ucheck: %v", err)
	}

	h.waitForServer(h.ServeURL("/health"), 10*time.Second)
	h.t.Logf("m3ucheck serving on port %d", h.servePort)
}

// ServeURL returns the URL of path on the m3ucheck service.
func (h *TestHarness) ServeURL(path string) string {
	return fmt.Sprintf("http://localhost:%d%s", h.servePort, path)
}

// Post sends body to path on the m3ucheck service and returns the status
// code and response body.
func (h *TestHarness) Post(path, body string) (int, string) {
	h.t.Helper()

	resp, err := http.Post(h.ServeURL(path), "application/vnd.apple.mpegurl", strings.NewReader(body))
	if err != nil {
		h.t.Fatalf("failed to post to %s: %v", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		h.t.Fatalf("failed to read response body: %v", err)
	}

	return resp.StatusCode, string(data)
}

// Cleanup stops all running services.
func (h *TestHarness) Cleanup() {
	h.t.Helper()

	// Stop m3ucheck
	if h.cancel != nil {
		h.cancel()
	}
	if h.serveCmd != nil && h.serveCmd.Process != nil {
		h.serveCmd.Process.Kill()
		h.serveCmd.Wait()
	}

	// Stop HTTP server
	if h.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.httpServer.Shutdown(ctx)
	}
}

// findBinary locates the m3ucheck binary.
func (h *TestHarness) findBinary() string {
	h.t.Helper()

	// Try several possible locations
	candidates := []string{
		"../../m3ucheck",          // From test/integration
		"./m3ucheck",              // From project root
		"../m3ucheck",             // From test directory
		"./cmd/m3ucheck/m3ucheck", // Built in place
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, _ := filepath.Abs(path)
			h.t.Logf("Found m3ucheck binary at: %s", absPath)
			return absPath
		}
	}

	h.t.Skip("m3ucheck binary not found. Run 'go build -o m3ucheck ./cmd/m3ucheck' first")
	return ""
}

// waitForServer waits for a server to become available.
func (h *TestHarness) waitForServer(url string, timeout time.Duration) {
	h.t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	h.t.Fatalf("server at %s did not become available within %v", url, timeout)
}

// findAvailablePort finds an available TCP port.
func findAvailablePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to find available port: %v", err)
	}
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}
