// Package attr tokenizes inline KEY=VALUE attribute lists.
package attr

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/agleyzer/m3ucheck/internal/segment"
)

// MaxLength is the longest attribute list accepted, in characters.
const MaxLength = 1024

// ErrTooLong is returned for attribute lists longer than MaxLength.
var ErrTooLong = errors.New("attributes too long")

// pairPattern matches NAME=VALUE where VALUE is double-quoted,
// single-quoted or a bare run of non-space characters.
var pairPattern = regexp.MustCompile(`([A-Za-z0-9_]+(?:-[A-Za-z0-9_]+)?)=(?:"([^"]*)"|'([^']*)'|([^ ]+))`)

// Tokenize splits raw into attributes. Text that does not form a pair is
// skipped. Quoted values lose their quotes and are otherwise kept verbatim;
// no escape processing happens.
func Tokenize(raw string) (segment.Attributes, error) {
	var attrs segment.Attributes

	if strings.TrimSpace(raw) == "" {
		return attrs, nil
	}

	if utf8.RuneCountInString(raw) > MaxLength {
		return attrs, ErrTooLong
	}

	for _, m := range pairPattern.FindAllStringSubmatchIndex(raw, -1) {
		name := strings.TrimSpace(raw[m[2]:m[3]])

		// Exactly one of the three value groups participates in a match
		var value string
		for g := 4; g <= 8; g += 2 {
			if m[g] >= 0 {
				value = raw[m[g]:m[g+1]]
				break
			}
		}

		attrs.Set(name, value)
	}

	return attrs, nil
}
