package diag

import "fmt"

// Collector accumulates the diagnostics of one parse call and forwards each
// one to an optional observer. A Collector must not be shared between parses.
type Collector struct {
	warnings []Warning
	observer Observer
}

// NewCollector creates a Collector. obs may be nil.
func NewCollector(obs Observer) *Collector {
	return &Collector{observer: obs}
}

// Add records w and notifies the observer. An observer that panics gets an
// internal Error recorded on the same line; it is not notified of that one.
func (c *Collector) Add(w Warning) {
	c.warnings = append(c.warnings, w)
	c.notify(w)
}

func (c *Collector) notify(w Warning) {
	if c.observer == nil {
		return
	}

	defer func() {
		if p := recover(); p != nil {
			c.warnings = append(c.warnings, Warning{
				Line:     w.Line,
				Raw:      w.Raw,
				Message:  fmt.Sprintf("diagnostic observer failed: %v", p),
				Severity: SeverityError,
				Kind:     KindInternal,
			})
		}
	}()
	c.observer(w)
}

// Warn records a Warning-severity diagnostic.
func (c *Collector) Warn(kind Kind, line int, raw, message string) {
	c.Add(Warning{Line: line, Raw: raw, Message: message, Severity: SeverityWarning, Kind: kind})
}

// Error records an Error-severity diagnostic.
func (c *Collector) Error(kind Kind, line int, raw, message string) {
	c.Add(Warning{Line: line, Raw: raw, Message: message, Severity: SeverityError, Kind: kind})
}

// Warnings returns the recorded diagnostics in production order.
func (c *Collector) Warnings() []Warning {
	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// OK reports whether no Error-severity diagnostic was recorded.
func (c *Collector) OK() bool {
	return !HasErrors(c.warnings)
}
