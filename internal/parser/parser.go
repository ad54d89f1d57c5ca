// Package parser recognizes M3U/HLS playlist text line by line and builds
// a playlist snapshot plus diagnostics.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/transform"

	"github.com/agleyzer/m3ucheck/internal/attr"
	"github.com/agleyzer/m3ucheck/internal/diag"
	"github.com/agleyzer/m3ucheck/internal/playlist"
	"github.com/agleyzer/m3ucheck/internal/segment"
	"github.com/agleyzer/m3ucheck/internal/tag"
)

// Result is the outcome of tolerant parsing.
type Result struct {
	// Playlist is the best-effort playlist. It is nil only when the header
	// check failed.
	Playlist *playlist.Playlist

	// Warnings lists every diagnostic in production order.
	Warnings []diag.Warning
}

// OK reports whether no Error-severity diagnostic was produced.
func (r *Result) OK() bool {
	return !diag.HasErrors(r.Warnings)
}

// Parse parses content and fails with a *diag.ParseError carrying the first
// Error-severity diagnostic. No playlist is returned on failure.
func Parse(content string, opts *Options) (*playlist.Playlist, error) {
	res := TryParse(content, opts)
	if first, ok := diag.FirstError(res.Warnings); ok {
		return nil, diag.NewParseError(first)
	}
	return res.Playlist, nil
}

// TryParse parses content without failing. A bad line is reported and
// skipped; everything that could be recognized ends up in the playlist.
func TryParse(content string, opts *Options) *Result {
	o := resolveOptions(opts)

	if decoded, _, err := transform.String(newDecoder(o), content); err == nil {
		content = decoded
	}

	rec := &recognizer{
		opts:  o,
		lines: newLineReader(strings.NewReader(content)),
		diags: diag.NewCollector(o.OnWarning),
	}

	if !rec.header() {
		return &Result{Warnings: rec.diags.Warnings()}
	}

	rec.body()

	return &Result{
		Playlist: playlist.New(rec.version, rec.session, rec.segments),
		Warnings: rec.diags.Warnings(),
	}
}

// recognizer holds the state of one whole-document parse.
type recognizer struct {
	opts     Options
	lines    *lineReader
	diags    *diag.Collector
	version  int
	session  segment.Attributes
	segments []segment.Segment
}

// header checks that the first non-empty line is the playlist header.
func (r *recognizer) header() bool {
	for {
		line, ok, err := r.lines.next()
		if err != nil || !ok {
			r.diags.Error(diag.KindFormat, max(r.lines.n, 1), "", headerMessage)
			return false
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		candidate := line
		if r.opts.TrimLines {
			candidate = strings.TrimSpace(candidate)
		}
		if candidate != tag.Header {
			r.diags.Error(diag.KindFormat, r.lines.n, line, headerMessage)
			return false
		}
		return true
	}
}

var headerMessage = fmt.Sprintf("playlist must start with %s", tag.Header)

// body classifies every line after the header.
func (r *recognizer) body() {
	for !r.opts.capReached(len(r.segments)) {
		line, ok, err := r.lines.next()
		if err != nil {
			r.diags.Error(diag.KindInternal, r.lines.n+1, "", fmt.Sprintf("read failed: %v", err))
			return
		}
		if !ok {
			return
		}

		if r.opts.TrimLines {
			line = strings.TrimSpace(line)
		}
		if skippable(line) {
			continue
		}

		r.line(r.lines.n, line)
	}
}

// line recognizes one line. A failure is confined to the line that caused it.
func (r *recognizer) line(num int, line string) {
	defer func() {
		if p := recover(); p != nil {
			r.diags.Error(diag.KindInternal, num, line, fmt.Sprintf("unexpected failure while parsing line: %v", p))
		}
	}()

	if err := r.directive(num, line); err != nil {
		r.diags.Error(diag.KindFormat, num, line, err.Error())
	}
}

func (r *recognizer) directive(num int, line string) error {
	switch {
	case tag.HasPrefix(line, tag.SessionData):
		attrs, err := attr.Tokenize(tag.TrimPrefix(line, tag.SessionData))
		if err != nil {
			return err
		}
		for _, a := range attrs.All() {
			r.session.Set(a.Name, strings.Trim(a.Value, `"`))
		}

	case tag.HasPrefix(line, tag.Duration):
		return r.segment(num, line)

	case tag.HasPrefix(line, tag.Version):
		// A garbled version is ignored
		if v, err := strconv.Atoi(strings.TrimSpace(tag.TrimPrefix(line, tag.Version))); err == nil {
			r.version = v
		}

	case tag.IsDirective(line):
		if !r.opts.AllowNonStandardTags && !tag.Known(line) {
			r.diags.Warn(diag.KindUnknownTag, num, line, "unknown tag not allowed: "+line)
		}
	}

	return nil
}

// segment builds a segment from a duration directive and the line after it.
func (r *recognizer) segment(num int, line string) error {
	parts := splitDuration(tag.TrimPrefix(line, tag.Duration))

	duration, err := parseDuration(parts.duration)
	if err != nil {
		return err
	}

	attrs, err := attr.Tokenize(parts.attrs)
	if err != nil {
		return err
	}

	// The next line is consumed as the URI whatever it holds
	uri, ok, err := r.lines.next()
	if err != nil {
		return fmt.Errorf("read failed: %w", err)
	}
	if r.opts.TrimLines {
		uri = strings.TrimSpace(uri)
	}
	if !ok || !isURI(uri) {
		r.diags.Error(diag.KindFormat, num+1, uri, "missing URI after "+strings.TrimSuffix(tag.Duration, ":"))
		return nil
	}

	r.segments = append(r.segments, segment.Segment{
		Duration:   duration,
		Title:      parts.title,
		URI:        uri,
		Attributes: attrs,
	})
	return nil
}
