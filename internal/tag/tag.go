// Package tag defines the M3U/HLS directive vocabulary recognized by the parser.
package tag

import "strings"

// Marker starts every directive and comment line.
const Marker = "#"

// Directives with semantic handling.
const (
	// Header must be the first non-empty line of every playlist.
	Header = "#EXTM3U"
	// Duration introduces a media segment.
	Duration = "#EXTINF:"
	// Version carries the protocol version.
	Version = "#EXT-X-VERSION:"
	// SessionData carries playlist-level attributes.
	SessionData = "#EXT-X-SESSION-DATA:"
)

// Pass-through directives. They are recognized so that strict tag policies
// do not flag them, but their values are not interpreted.
const (
	TargetDuration        = "#EXT-X-TARGETDURATION:"
	MediaSequence         = "#EXT-X-MEDIA-SEQUENCE:"
	DiscontinuitySequence = "#EXT-X-DISCONTINUITY-SEQUENCE:"
	PlaylistType          = "#EXT-X-PLAYLIST-TYPE:"
	ProgramDateTime       = "#EXT-X-PROGRAM-DATE-TIME:"
	EndList               = "#EXT-X-ENDLIST"
	Start                 = "#EXT-X-START:"
	Discontinuity         = "#EXT-X-DISCONTINUITY"
	ByteRange             = "#EXT-X-BYTERANGE:"
	Map                   = "#EXT-X-MAP:"
	Key                   = "#EXT-X-KEY"
	CueOut                = "#EXT-X-CUE-OUT"
	CueOutCont            = "#EXT-X-CUE-OUT-CONT:"
	CueIn                 = "#EXT-X-CUE-IN"
	Media                 = "#EXT-X-MEDIA"
	StreamInf             = "#EXT-X-STREAM-INF"
	IFrameStreamInf       = "#EXT-X-I-FRAME-STREAM-INF"
	IFramesOnly           = "#EXT-X-I-FRAMES-ONLY"
	IndependentSegments   = "#EXT-X-INDEPENDENT-SEGMENTS"
)

// vocabulary is every directive prefix the parser knows about.
var vocabulary = []string{
	Header, Duration, Version, SessionData,
	TargetDuration, MediaSequence, DiscontinuitySequence, PlaylistType,
	ProgramDateTime, EndList, Start, Discontinuity, ByteRange, Map, Key,
	CueOut, CueOutCont, CueIn, Media, StreamInf, IFrameStreamInf,
	IFramesOnly, IndependentSegments,
}

// HasPrefix reports whether line starts with directive, ignoring ASCII case.
func HasPrefix(line, directive string) bool {
	return len(line) >= len(directive) && strings.EqualFold(line[:len(directive)], directive)
}

// TrimPrefix returns line without directive. The caller must have checked
// HasPrefix first.
func TrimPrefix(line, directive string) string {
	return line[len(directive):]
}

// IsDirective reports whether line is a comment or directive line.
func IsDirective(line string) bool {
	return strings.HasPrefix(line, Marker)
}

// Known reports whether line starts with any directive of the vocabulary.
func Known(line string) bool {
	for _, d := range vocabulary {
		if HasPrefix(line, d) {
			return true
		}
	}
	return false
}
