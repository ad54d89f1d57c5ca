package parser

import (
	"context"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/agleyzer/m3ucheck/internal/attr"
	"github.com/agleyzer/m3ucheck/internal/diag"
	"github.com/agleyzer/m3ucheck/internal/segment"
	"github.com/agleyzer/m3ucheck/internal/tag"
)

// SegmentScanner produces segments from a live source one at a time,
// without building the whole playlist. Only duration directives and the
// URI lines after them are recognized.
//
// A scanner is forward-only. Scanning the same input again needs a new
// scanner over a fresh reader.
//
//	sc := parser.NewSegmentScanner(r, nil)
//	for sc.Next(ctx) {
//		seg := sc.Segment()
//		...
//	}
//	if err := sc.Err(); err != nil {
//		...
//	}
type SegmentScanner struct {
	opts  Options
	lines *lineReader
	seg   segment.Segment
	count int
	err   error
	done  bool
}

// NewSegmentScanner creates a scanner reading from r.
func NewSegmentScanner(r io.Reader, opts *Options) *SegmentScanner {
	o := resolveOptions(opts)

	return &SegmentScanner{
		opts:  o,
		lines: newLineReader(transform.NewReader(r, newDecoder(o))),
	}
}

// newDecoder returns the UTF-8 decoder both parse modes read through.
// Invalid bytes become U+FFFD.
func newDecoder(o Options) transform.Transformer {
	if o.RemoveBOM {
		return unicode.BOMOverride(unicode.UTF8.NewDecoder())
	}
	return unicode.UTF8.NewDecoder()
}

// Next advances to the next segment. It returns false at the end of input,
// on a read error, or when ctx is done; Err tells these apart.
// ctx is checked before every line read.
func (s *SegmentScanner) Next(ctx context.Context) bool {
	if s.done {
		return false
	}

	for {
		if s.opts.capReached(s.count) {
			return s.stop(nil)
		}

		line, ok, err := s.read(ctx)
		if err != nil {
			return s.stop(err)
		}
		if !ok {
			return s.stop(nil)
		}

		if s.opts.TrimLines {
			line = strings.TrimSpace(line)
		}
		if skippable(line) || !tag.HasPrefix(line, tag.Duration) {
			continue
		}

		num := s.lines.n
		parts := splitDuration(tag.TrimPrefix(line, tag.Duration))

		// Streams keep going on a bad duration
		duration, err := parseDuration(parts.duration)
		if err != nil {
			s.report(diag.SeverityWarning, num, line, err.Error()+", using 0")
			duration = 0
		}

		attrs, err := attr.Tokenize(parts.attrs)
		if err != nil {
			s.report(diag.SeverityError, num, line, err.Error())
		}

		uri, ok, err := s.read(ctx)
		if err != nil {
			return s.stop(err)
		}
		if s.opts.TrimLines {
			uri = strings.TrimSpace(uri)
		}
		if !ok || !isURI(uri) {
			s.report(diag.SeverityError, num+1, uri, "missing URI after "+strings.TrimSuffix(tag.Duration, ":"))
			continue
		}

		s.seg = segment.Segment{
			Duration:   duration,
			Title:      parts.title,
			URI:        uri,
			Attributes: attrs,
		}
		s.count++
		return true
	}
}

// Segment returns the segment produced by the last successful call to Next.
func (s *SegmentScanner) Segment() segment.Segment {
	return s.seg
}

// Err returns the error that stopped the scanner: nil at a clean end of
// input, the context error after cancellation, or the read error.
func (s *SegmentScanner) Err() error {
	return s.err
}

// Count returns the number of segments produced so far.
func (s *SegmentScanner) Count() int {
	return s.count
}

func (s *SegmentScanner) read(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	return s.lines.next()
}

func (s *SegmentScanner) stop(err error) bool {
	s.done = true
	s.err = err
	s.seg = segment.Segment{}
	return false
}

func (s *SegmentScanner) report(sev diag.Severity, line int, raw, message string) {
	if s.opts.OnWarning == nil {
		return
	}
	s.opts.OnWarning(diag.Warning{
		Line:     line,
		Raw:      raw,
		Message:  message,
		Severity: sev,
		Kind:     diag.KindFormat,
	})
}
