package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/agleyzer/m3ucheck/internal/playlist"
	"github.com/agleyzer/m3ucheck/internal/tag"
)

// VersionUnspecified is reported by DetectVersion for playlists without a
// version directive.
const VersionUnspecified = -1

const maxSupportedVersion = 9

var (
	// ErrUnsupportedVersion is returned for versions no dialect handles.
	ErrUnsupportedVersion = errors.New("unsupported playlist version")

	// ErrEmptyContent is returned by Load for blank input.
	ErrEmptyContent = errors.New("content cannot be empty")
)

// Dialect identifies a playlist grammar. The set is closed.
type Dialect uint8

const (
	// DialectExtM3U is the line-anchored extended M3U grammar.
	DialectExtM3U Dialect = iota + 1
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case DialectExtM3U:
		return "extm3u"
	default:
		return fmt.Sprintf("dialect(%d)", uint8(d))
	}
}

// dialects maps protocol versions to dialects. Read-only after init.
var dialects = func() map[int]Dialect {
	m := map[int]Dialect{VersionUnspecified: DialectExtM3U}
	for v := 1; v <= maxSupportedVersion; v++ {
		m[v] = DialectExtM3U
	}
	return m
}()

// DialectFor returns the dialect that parses playlists of the given version.
func DialectFor(version int) (Dialect, error) {
	d, ok := dialects[version]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	return d, nil
}

// Parse parses content strictly with this dialect.
func (d Dialect) Parse(content string, opts *Options) (*playlist.Playlist, error) {
	switch d {
	case DialectExtM3U:
		return Parse(content, opts)
	default:
		return nil, fmt.Errorf("no parser for %s", d)
	}
}

// DetectVersion returns the value of the first version directive in
// content, or VersionUnspecified when there is none.
func DetectVersion(content string) (int, error) {
	lines := newLineReader(strings.NewReader(content))
	for {
		line, ok, err := lines.next()
		if err != nil {
			return 0, fmt.Errorf("read content: %w", err)
		}
		if !ok {
			return VersionUnspecified, nil
		}

		line = strings.TrimSpace(line)
		if !tag.HasPrefix(line, tag.Version) {
			continue
		}

		value := strings.TrimSpace(tag.TrimPrefix(line, tag.Version))
		v, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrUnsupportedVersion, value)
		}
		return v, nil
	}
}

// Load detects the playlist version, picks the dialect for it and parses
// content strictly.
func Load(content string, opts *Options) (*playlist.Playlist, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	version, err := DetectVersion(content)
	if err != nil {
		return nil, err
	}

	d, err := DialectFor(version)
	if err != nil {
		return nil, err
	}

	return d.Parse(content, opts)
}
