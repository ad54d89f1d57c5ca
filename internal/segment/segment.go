// Package segment defines data structures for playlist media segments.
package segment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Unknown is the duration sentinel for live or unknown-length segments.
const Unknown = -1.0

// Segment represents a single media entry of a playlist.
type Segment struct {
	// Duration is the segment duration in seconds, or Unknown.
	Duration float64 `json:"duration"`

	// Title is the display name following the first comma of the duration
	// directive. Empty when the directive has no comma.
	Title string `json:"title,omitempty"`

	// URI is the line following the duration directive, kept as-is.
	URI string `json:"uri"`

	// Attributes holds the inline KEY=VALUE pairs of the duration directive.
	Attributes Attributes `json:"attributes"`
}

// IsLive reports whether the segment carries the unknown-duration sentinel.
func (s Segment) IsLive() bool {
	return s.Duration == Unknown
}

// Attribute is one name/value pair, with the name spelled as it was last written.
type Attribute struct {
	Name  string
	Value string
}

// Attributes is an ordered mapping from attribute name to raw value.
// Names compare case-insensitively; the last write for a name wins and
// keeps the position of the first write. The zero value is empty and ready to use.
type Attributes struct {
	index map[string]int
	items []Attribute
}

// Set stores value under name, overwriting any earlier value for the same
// name in any letter case.
func (a *Attributes) Set(name, value string) {
	key := strings.ToLower(name)
	if i, ok := a.index[key]; ok {
		a.items[i] = Attribute{Name: name, Value: value}
		return
	}
	if a.index == nil {
		a.index = make(map[string]int)
	}
	a.index[key] = len(a.items)
	a.items = append(a.items, Attribute{Name: name, Value: value})
}

// Get returns the value stored under name.
func (a Attributes) Get(name string) (string, bool) {
	i, ok := a.index[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return a.items[i].Value, true
}

// Len returns the number of distinct names.
func (a Attributes) Len() int {
	return len(a.items)
}

// All returns a copy of the pairs in insertion order.
func (a Attributes) All() []Attribute {
	out := make([]Attribute, len(a.items))
	copy(out, a.items)
	return out
}

// Map returns the pairs as a plain map keyed by display name.
func (a Attributes) Map() map[string]string {
	m := make(map[string]string, len(a.items))
	for _, attr := range a.items {
		m[attr.Name] = attr.Value
	}
	return m
}

// MarshalJSON encodes the attributes as a JSON object in insertion order.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range a.items {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(attr.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(attr.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of string values, keeping key order.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = Attributes{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("attributes must be a JSON object")
	}

	var out Attributes
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)

		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
		out.Set(name, value)
	}

	*a = out
	return nil
}
