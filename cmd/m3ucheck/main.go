// The m3ucheck command parses and validates M3U/HLS playlists from files,
// URLs or stdin, or serves the same checks over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/term"

	"github.com/agleyzer/m3ucheck/internal/diag"
	"github.com/agleyzer/m3ucheck/internal/parser"
	"github.com/agleyzer/m3ucheck/internal/server"
	"github.com/agleyzer/m3ucheck/internal/source"
)

const (
	version = "1.0.0"
)

// Output formats.
const (
	formatAuto = "auto"
	formatText = "text"
	formatJSON = "json"
)

// errCheckFailed reports a playlist that did not pass; the details have
// already been written.
var errCheckFailed = errors.New("playlist check failed")

// config holds the command-line settings.
type config struct {
	location    string
	strict      bool
	validate    bool
	stream      bool
	crosscheck  bool
	options     parser.Options
	format      string
	serve       bool
	port        int
	verbose     bool
	showVersion bool
}

// Validate checks the settings and resolves the output format.
func (c *config) Validate(stdoutIsTerminal bool) error {
	switch c.format {
	case formatAuto:
		c.format = formatJSON
		if stdoutIsTerminal {
			c.format = formatText
		}
	case formatText, formatJSON:
	default:
		return fmt.Errorf("format must be one of auto, text, json, got %q", c.format)
	}

	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	if err := c.options.Validate(); err != nil {
		return err
	}

	if c.serve {
		return nil
	}

	if c.location == "" {
		return fmt.Errorf("playlist location is required")
	}
	if c.stream && (c.validate || c.crosscheck || c.strict) {
		return fmt.Errorf("-stream cannot be combined with -strict, -validate or -crosscheck")
	}

	return nil
}

// parseFlags reads the command line into a config.
func parseFlags(args []string, stderr io.Writer) (*config, error) {
	fs := flag.NewFlagSet("m3ucheck", flag.ContinueOnError)
	fs.SetOutput(stderr)

	defaults := parser.DefaultOptions()
	cfg := &config{}

	fs.BoolVar(&cfg.strict, "strict", false, "Fail on the first error instead of collecting diagnostics")
	fs.BoolVar(&cfg.validate, "validate", false, "Validate the parsed playlist (segments, durations, URIs)")
	fs.BoolVar(&cfg.stream, "stream", false, "Print segments as they are read instead of parsing the whole playlist")
	fs.BoolVar(&cfg.crosscheck, "crosscheck", false, "Compare the result with the grafov/m3u8 decoder")
	fs.BoolVar(&cfg.options.AllowNonStandardTags, "allow-non-standard", defaults.AllowNonStandardTags, "Accept tags outside the known vocabulary without warnings")
	fs.BoolVar(&cfg.options.TrimLines, "trim", defaults.TrimLines, "Trim whitespace around every line")
	fs.BoolVar(&cfg.options.RemoveBOM, "remove-bom", defaults.RemoveBOM, "Drop a leading byte order mark")
	fs.IntVar(&cfg.options.MaxSegments, "max-segments", 0, "Stop after this many segments (0 means unlimited)")
	fs.StringVar(&cfg.format, "format", formatAuto, "Output format: auto, text or json")
	fs.BoolVar(&cfg.serve, "serve", false, "Serve the parse API over HTTP instead of checking a playlist")
	fs.IntVar(&cfg.port, "port", server.DefaultPort, "HTTP server port (with -serve)")
	fs.BoolVar(&cfg.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&cfg.showVersion, "version", false, "Show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "m3ucheck - M3U/HLS playlist checker v%s\n\n", version)
		fmt.Fprintf(stderr, "Usage: m3ucheck [options] <file|url|->\n\n")
		fmt.Fprintf(stderr, "Arguments:\n")
		fmt.Fprintf(stderr, "  <file|url|->    Playlist file, http(s) URL, or - for stdin\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  m3ucheck channels.m3u\n")
		fmt.Fprintf(stderr, "  m3ucheck -strict -validate https://example.com/playlist.m3u8\n")
		fmt.Fprintf(stderr, "  cat channels.m3u | m3ucheck -stream -format json -\n")
		fmt.Fprintf(stderr, "  m3ucheck -serve -port 8080\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fs.NArg() > 1 {
		return nil, fmt.Errorf("expected one playlist location, got %d", fs.NArg())
	}
	cfg.location = fs.Arg(0)

	return cfg, nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if cfg.showVersion {
		fmt.Printf("m3ucheck v%s\n", version)
		os.Exit(0)
	}

	if err := cfg.Validate(term.IsTerminal(int(os.Stdout.Fd()))); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		os.Exit(2)
	}

	// Setup logger
	logLevel := slog.LevelWarn
	if cfg.verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received signal", "signal", sig)
		cancel()
	}()

	env := &environment{
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		logger:      logger,
		loader:      source.New(),
		colorStderr: term.IsTerminal(int(os.Stderr.Fd())),
	}

	if err := run(ctx, cfg, env); err != nil {
		if !errors.Is(err, errCheckFailed) {
			logger.Error("application error", "error", err)
		}
		os.Exit(1)
	}
}

// environment is what run needs from the process.
type environment struct {
	stdout      io.Writer
	stderr      io.Writer
	logger      *slog.Logger
	loader      *source.Loader
	colorStderr bool
}

// diagnosticLogger returns the hclog logger that prints diagnostics.
func (e *environment) diagnosticLogger(verbose bool) hclog.Logger {
	level := hclog.Warn
	if verbose {
		level = hclog.Debug
	}
	return diag.NewHCLogger("m3ucheck", e.stderr, level, e.colorStderr)
}

func run(ctx context.Context, cfg *config, env *environment) error {
	if cfg.serve {
		return serve(ctx, cfg, env)
	}

	// Diagnostics go to stderr for people; JSON output carries them instead
	if cfg.format == formatText || cfg.verbose {
		cfg.options.OnWarning = diag.NewLogObserver(env.diagnosticLogger(cfg.verbose))
	}

	if cfg.stream {
		return streamSegments(ctx, cfg, env)
	}
	return checkPlaylist(ctx, cfg, env)
}

func serve(ctx context.Context, cfg *config, env *environment) error {
	srvCfg := server.Config{
		Port:    cfg.port,
		Options: cfg.options,
		Version: version,
	}
	if err := srvCfg.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	env.logger.Info("m3ucheck API ready",
		"parse", fmt.Sprintf("http://localhost:%d/parse", srvCfg.Port),
		"health", fmt.Sprintf("http://localhost:%d/health", srvCfg.Port),
	)

	// Start server (blocks until shutdown)
	return server.New(srvCfg, env.logger).Start(ctx)
}
