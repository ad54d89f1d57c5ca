// Package diag collects parse diagnostics: non-fatal warnings and
// line-scoped errors, with the line number and raw text that caused them.
package diag

import (
	"fmt"
)

// Severity classifies a diagnostic.
type Severity int

const (
	// SeverityWarning marks a recoverable issue; the parse still succeeds.
	SeverityWarning Severity = iota
	// SeverityError marks a format violation; the parse fails.
	SeverityError
)

// String returns the lower-case name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Kind identifies where a diagnostic comes from.
type Kind string

const (
	// KindFormat is a structural violation: missing header, missing URI,
	// unparseable duration, oversized attribute list.
	KindFormat Kind = "format"
	// KindUnknownTag is an unrecognized directive under a strict tag policy.
	KindUnknownTag Kind = "unknown-tag"
	// KindInternal is an unexpected failure while processing a single line.
	KindInternal Kind = "internal"
	// KindCrosscheck is a disagreement with the reference decoder.
	KindCrosscheck Kind = "crosscheck"
)

// Warning is a single diagnostic.
type Warning struct {
	Line     int      `json:"line"`
	Raw      string   `json:"raw"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Kind     Kind     `json:"kind"`
}

// String formats the diagnostic for humans.
func (w Warning) String() string {
	return fmt.Sprintf("%s (line %d): %s: %q", w.Severity, w.Line, w.Message, w.Raw)
}

// IsError reports whether the diagnostic has Error severity.
func (w Warning) IsError() bool {
	return w.Severity == SeverityError
}

// Observer receives each diagnostic as it is produced.
type Observer func(Warning)

// HasErrors reports whether any diagnostic has Error severity.
func HasErrors(warnings []Warning) bool {
	_, ok := FirstError(warnings)
	return ok
}

// FirstError returns the first Error-severity diagnostic.
func FirstError(warnings []Warning) (Warning, bool) {
	for _, w := range warnings {
		if w.IsError() {
			return w, true
		}
	}
	return Warning{}, false
}

// Count returns the number of warnings and errors.
func Count(warnings []Warning) (nWarn, nErr int) {
	for _, w := range warnings {
		if w.IsError() {
			nErr++
		} else {
			nWarn++
		}
	}
	return nWarn, nErr
}
