package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/agleyzer/m3ucheck/internal/crosscheck"
	"github.com/agleyzer/m3ucheck/internal/diag"
	"github.com/agleyzer/m3ucheck/internal/parser"
	"github.com/agleyzer/m3ucheck/internal/playlist"
	"github.com/agleyzer/m3ucheck/internal/validate"
)

// report is the outcome of checking one playlist.
type report struct {
	Location    string             `json:"location"`
	OK          bool               `json:"ok"`
	Playlist    *playlist.Playlist `json:"playlist,omitempty"`
	Stats       *playlist.Stats    `json:"stats,omitempty"`
	Diagnostics []diag.Warning     `json:"diagnostics"`
	Error       string             `json:"error,omitempty"`
}

// recorder counts and keeps diagnostics before passing them on.
type recorder struct {
	next     diag.Observer
	warnings []diag.Warning
}

func newRecorder(next diag.Observer) *recorder {
	return &recorder{next: next}
}

func (r *recorder) observe(w diag.Warning) {
	r.warnings = append(r.warnings, w)
	if r.next != nil {
		r.next(w)
	}
}

// checkPlaylist parses the whole playlist, optionally crosschecks and
// validates it, and writes a report.
func checkPlaylist(ctx context.Context, cfg *config, env *environment) error {
	content, err := env.loader.Read(ctx, cfg.location)
	if err != nil {
		return err
	}

	rec := newRecorder(cfg.options.OnWarning)
	opts := cfg.options
	opts.OnWarning = rec.observe

	rep := report{Location: cfg.location, OK: true}

	if cfg.strict {
		pl, err := parser.Load(content, &opts)
		if err != nil {
			rep.OK = false
			rep.Error = err.Error()
		}
		rep.Playlist = pl
	} else {
		res := parser.TryParse(content, &opts)
		rep.OK = res.OK()
		rep.Playlist = res.Playlist
	}

	if rep.Playlist != nil && cfg.crosscheck {
		for _, w := range crosscheck.Compare(content, rep.Playlist) {
			rec.observe(w)
		}
	}

	if rep.Playlist != nil && cfg.validate {
		if err := validate.Validate(rep.Playlist); err != nil {
			rep.OK = false
			rep.Error = err.Error()
		}
	}

	if rep.Playlist != nil {
		stats := rep.Playlist.Stats()
		rep.Stats = &stats
	}

	rep.Diagnostics = rec.warnings
	if rep.Diagnostics == nil {
		rep.Diagnostics = []diag.Warning{}
	}

	if err := writeReport(env.stdout, cfg.format, &rep); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	env.logger.Debug("playlist checked", "location", cfg.location, "ok", rep.OK)

	if !rep.OK {
		return errCheckFailed
	}
	return nil
}

func writeReport(w io.Writer, format string, rep *report) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	nWarn, nErr := diag.Count(rep.Diagnostics)

	if !rep.OK && rep.Error == "" {
		if first, ok := diag.FirstError(rep.Diagnostics); ok {
			rep.Error = diag.NewParseError(first).Error()
		}
	}

	var b strings.Builder
	if rep.OK {
		fmt.Fprintf(&b, "%s: ok", rep.Location)
	} else {
		fmt.Fprintf(&b, "%s: FAILED: %s", rep.Location, rep.Error)
	}

	if rep.Stats != nil {
		s := rep.Stats
		fmt.Fprintf(&b, ", version %d, %d segments (%d live), %.3fs total, %d session keys",
			rep.Playlist.ProtocolVersion, s.Segments, s.LiveSegments, s.TotalDuration, s.SessionKeys)
	}

	fmt.Fprintf(&b, ", %d warnings, %d errors\n", nWarn, nErr)

	_, err := io.WriteString(w, b.String())
	return err
}

// streamSegments prints segments as they are read.
func streamSegments(ctx context.Context, cfg *config, env *environment) error {
	rc, err := env.loader.Open(ctx, cfg.location)
	if err != nil {
		return err
	}
	defer rc.Close()

	rec := newRecorder(cfg.options.OnWarning)
	opts := cfg.options
	opts.OnWarning = rec.observe

	sc := parser.NewSegmentScanner(rc, &opts)
	enc := json.NewEncoder(env.stdout)

	for sc.Next(ctx) {
		seg := sc.Segment()
		if cfg.format == formatJSON {
			err = enc.Encode(seg)
		} else {
			_, err = fmt.Fprintf(env.stdout, "%g\t%s\t%s\n", seg.Duration, seg.Title, seg.URI)
		}
		if err != nil {
			return fmt.Errorf("write segment: %w", err)
		}
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("stream %s: %w", cfg.location, err)
	}

	env.logger.Debug("stream finished", "location", cfg.location, "segments", sc.Count())

	if diag.HasErrors(rec.warnings) {
		return errCheckFailed
	}
	return nil
}
