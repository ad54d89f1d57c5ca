package parser

import (
	"fmt"
	"net/url"

	"github.com/agleyzer/m3ucheck/internal/diag"
)

// Options controls how playlist text is recognized. Use DefaultOptions and
// change individual fields; a nil *Options means defaults.
type Options struct {
	// AllowNonStandardTags silences directives outside the known vocabulary.
	// When false each one yields a Warning diagnostic.
	AllowNonStandardTags bool

	// TrimLines strips surrounding whitespace from every line.
	TrimLines bool

	// RemoveBOM drops a leading byte order mark.
	RemoveBOM bool

	// MaxSegments stops recognition after that many segments. 0 means unlimited.
	MaxSegments int

	// BaseURI is carried for callers that resolve relative segment URIs.
	// The parser never reads it.
	BaseURI string

	// OnWarning, if set, is called once per diagnostic as it is produced.
	OnWarning diag.Observer
}

// DefaultOptions returns the default parse options.
func DefaultOptions() Options {
	return Options{
		AllowNonStandardTags: true,
		TrimLines:            true,
		RemoveBOM:            true,
	}
}

// Validate checks if the options are usable.
func (o Options) Validate() error {
	if o.MaxSegments < 0 {
		return fmt.Errorf("max segments must not be negative, got %d", o.MaxSegments)
	}

	if o.BaseURI != "" {
		u, err := url.Parse(o.BaseURI)
		if err != nil {
			return fmt.Errorf("invalid base URI %q: %w", o.BaseURI, err)
		}
		if !u.IsAbs() {
			return fmt.Errorf("base URI %q must be absolute", o.BaseURI)
		}
	}

	return nil
}

// resolveOptions returns the effective options for a parse call.
func resolveOptions(opts *Options) Options {
	if opts == nil {
		return DefaultOptions()
	}
	o := *opts
	if o.MaxSegments < 0 {
		o.MaxSegments = 0
	}
	return o
}

// capReached reports whether count segments exhaust the MaxSegments budget.
func (o Options) capReached(count int) bool {
	return o.MaxSegments > 0 && count >= o.MaxSegments
}
