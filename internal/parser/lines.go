package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agleyzer/m3ucheck/internal/tag"
)

// lineReader yields \n or \r\n terminated lines and counts them.
type lineReader struct {
	r   *bufio.Reader
	n   int
	eof bool
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

// next returns the next line without its terminator. ok is false once the
// input is exhausted.
func (lr *lineReader) next() (line string, ok bool, err error) {
	if lr.eof {
		return "", false, nil
	}

	line, err = lr.r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", false, err
		}
		lr.eof = true
		if line == "" {
			return "", false, nil
		}
	}

	lr.n++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, true, nil
}

// skippable reports whether a line carries nothing to recognize.
func skippable(line string) bool {
	if strings.TrimSpace(line) == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(line)
	return unicode.IsControl(r)
}

// isURI reports whether a candidate line following a duration directive
// can serve as the segment URI.
// Surrounding whitespace never hides a directive, whatever TrimLines says.
func isURI(line string) bool {
	line = strings.TrimSpace(line)
	return line != "" && !tag.IsDirective(line)
}

// durationParts is the text following #EXTINF: split into its pieces.
type durationParts struct {
	duration string
	attrs    string
	title    string
}

// splitDuration splits the remainder of a duration directive on its first
// comma. The duration is the first space-delimited word before the comma,
// the rest of that part is the attribute list, and the trimmed text after
// the comma is the title.
func splitDuration(rest string) durationParts {
	head, title, hasTitle := strings.Cut(rest, ",")
	head = strings.TrimSpace(head)

	var p durationParts
	p.duration, p.attrs, _ = strings.Cut(head, " ")
	if hasTitle {
		p.title = strings.TrimSpace(title)
	}
	return p
}

// ErrInvalidDuration is reported for a duration that is not a finite number.
var ErrInvalidDuration = errors.New("invalid duration format")

// parseDuration parses the duration word of a duration directive.
func parseDuration(text string) (float64, error) {
	d, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidDuration, text)
	}
	return d, nil
}
