package diag

import "fmt"

// ParseError is the failure returned by strict parsing. It carries the
// first Error-severity diagnostic.
type ParseError struct {
	Line    int
	Raw     string
	Message string
	Kind    Kind
}

// NewParseError converts a diagnostic into a ParseError.
func NewParseError(w Warning) *ParseError {
	return &ParseError{
		Line:    w.Line,
		Raw:     w.Raw,
		Message: w.Message,
		Kind:    w.Kind,
	}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (line %d): %s", e.Message, e.Line, e.Raw)
}
