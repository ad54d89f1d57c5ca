// Package validate checks playlist-wide invariants that cannot be judged one
// line at a time.
package validate

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/agleyzer/m3ucheck/internal/playlist"
	"github.com/agleyzer/m3ucheck/internal/segment"
)

// LogoAttribute is the segment attribute holding a channel logo URI.
const LogoAttribute = "tvg-logo"

var (
	// ErrNilPlaylist is returned when there is nothing to validate.
	ErrNilPlaylist = errors.New("playlist cannot be nil")

	// ErrNoSegments is returned for a playlist without segments.
	ErrNoSegments = errors.New("playlist must contain at least one segment")
)

// Error describes the first segment that violated an invariant.
type Error struct {
	Index   int    // position of the segment in the playlist
	Field   string // duration, title, uri or the attribute name
	Value   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("segment %d: %s", e.Index, e.Message)
}

// Validate checks p and returns the first violation found. Segments are
// checked in order and within a segment the duration comes first, then the
// title, the URI and the logo attribute. p is never modified.
func Validate(p *playlist.Playlist) error {
	if p == nil {
		return ErrNilPlaylist
	}

	if len(p.Segments) == 0 {
		return ErrNoSegments
	}

	for i, seg := range p.Segments {
		if err := checkSegment(i, seg); err != nil {
			return err
		}
	}

	return nil
}

func checkSegment(i int, seg segment.Segment) error {
	if seg.Duration < segment.Unknown {
		return &Error{
			Index:   i,
			Field:   "duration",
			Value:   fmt.Sprintf("%g", seg.Duration),
			Message: fmt.Sprintf("invalid duration: %g. must be -1 or positive", seg.Duration),
		}
	}

	if strings.TrimSpace(seg.Title) == "" {
		return &Error{
			Index:   i,
			Field:   "title",
			Value:   seg.Title,
			Message: "segment title cannot be empty",
		}
	}

	if !isWebURI(seg.URI) {
		return &Error{
			Index:   i,
			Field:   "uri",
			Value:   seg.URI,
			Message: fmt.Sprintf("invalid or insecure URI: %s. must be absolute http/https", seg.URI),
		}
	}

	if logo, ok := seg.Attributes.Get(LogoAttribute); ok && logo != "" && !isWebURI(logo) {
		return &Error{
			Index:   i,
			Field:   LogoAttribute,
			Value:   logo,
			Message: fmt.Sprintf("invalid tvg-logo URI: %s", logo),
		}
	}

	return nil
}

// isWebURI reports whether s is an absolute http or https URI with a host.
func isWebURI(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}

	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || strings.TrimSpace(u.Hostname()) == "" {
		return false
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}
