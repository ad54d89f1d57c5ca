// Package crosscheck compares a parsed playlist with the result of decoding
// the same text with github.com/grafov/m3u8.
package crosscheck

import (
	"fmt"
	"math"
	"strings"

	"github.com/grafov/m3u8"

	"github.com/agleyzer/m3ucheck/internal/diag"
	"github.com/agleyzer/m3ucheck/internal/playlist"
	"github.com/agleyzer/m3ucheck/internal/segment"
)

// durationTolerance absorbs float formatting differences between decoders.
const durationTolerance = 1e-6

// Compare decodes content with the reference decoder and reports every
// disagreement with pl. All diagnostics have Warning severity; nothing here
// makes a parse fail.
func Compare(content string, pl *playlist.Playlist) []diag.Warning {
	if pl == nil {
		return nil
	}

	decoded, listType, err := m3u8.DecodeFrom(strings.NewReader(content), false)
	if err != nil {
		return []diag.Warning{warn("", fmt.Sprintf("reference decoder failed: %v", err))}
	}

	if listType == m3u8.MASTER {
		return []diag.Warning{warn("", "reference decoder sees a master playlist, segments not compared")}
	}

	media, ok := decoded.(*m3u8.MediaPlaylist)
	if !ok {
		return []diag.Warning{warn("", "unexpected playlist type from reference decoder")}
	}

	return compareSegments(pl.Segments, referenceSegments(media))
}

// referenceSegments copies the decoded segments up to the first empty slot.
func referenceSegments(media *m3u8.MediaPlaylist) []segment.Segment {
	var segs []segment.Segment
	for _, seg := range media.Segments {
		if seg == nil {
			break
		}
		segs = append(segs, segment.Segment{
			URI:      seg.URI,
			Duration: seg.Duration,
		})
	}
	return segs
}

func compareSegments(got, want []segment.Segment) []diag.Warning {
	var warnings []diag.Warning

	if len(got) != len(want) {
		warnings = append(warnings, warn("",
			fmt.Sprintf("segment count differs: parsed %d, reference %d", len(got), len(want))))
	}

	for i := 0; i < min(len(got), len(want)); i++ {
		if got[i].URI != want[i].URI {
			warnings = append(warnings, warn(got[i].URI,
				fmt.Sprintf("segment %d URI differs: reference has %q", i, want[i].URI)))
		}
		if math.Abs(got[i].Duration-want[i].Duration) > durationTolerance {
			warnings = append(warnings, warn(got[i].URI,
				fmt.Sprintf("segment %d duration differs: parsed %g, reference %g", i, got[i].Duration, want[i].Duration)))
		}
	}

	return warnings
}

// warn builds a crosscheck diagnostic. The reference decoder reports no line
// numbers, so Line stays 0 and the message names the segment.
func warn(raw, message string) diag.Warning {
	return diag.Warning{
		Raw:      raw,
		Message:  message,
		Severity: diag.SeverityWarning,
		Kind:     diag.KindCrosscheck,
	}
}
