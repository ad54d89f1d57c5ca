// Package playlist defines the parsed playlist snapshot.
package playlist

import (
	"github.com/agleyzer/m3ucheck/internal/segment"
)

// Playlist is the result of a parse call. It is built once and not
// modified afterwards.
type Playlist struct {
	// ProtocolVersion is the #EXT-X-VERSION value, 0 when absent.
	ProtocolVersion int `json:"protocol_version"`

	// SessionData merges every #EXT-X-SESSION-DATA directive; later keys win.
	SessionData segment.Attributes `json:"session_data"`

	// Segments in playlist order.
	Segments []segment.Segment `json:"segments"`
}

// New creates a playlist from its parts.
func New(version int, sessionData segment.Attributes, segments []segment.Segment) *Playlist {
	if segments == nil {
		segments = []segment.Segment{}
	}
	return &Playlist{
		ProtocolVersion: version,
		SessionData:     sessionData,
		Segments:        segments,
	}
}

// Stats summarises a playlist.
type Stats struct {
	Segments      int     `json:"segments"`
	LiveSegments  int     `json:"live_segments"`
	TotalDuration float64 `json:"total_duration"`
	SessionKeys   int     `json:"session_keys"`
	MaxDuration   float64 `json:"max_duration"`
}

// Stats returns current statistics about the playlist. Durations of live
// segments are left out of the totals.
func (p *Playlist) Stats() Stats {
	s := Stats{
		Segments:    len(p.Segments),
		SessionKeys: p.SessionData.Len(),
	}

	for _, seg := range p.Segments {
		if seg.IsLive() {
			s.LiveSegments++
			continue
		}
		if seg.Duration < 0 {
			continue
		}
		s.TotalDuration += seg.Duration
		if seg.Duration > s.MaxDuration {
			s.MaxDuration = seg.Duration
		}
	}

	return s
}
