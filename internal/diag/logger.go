package diag

import (
	"io"

	"github.com/hashicorp/go-hclog"
)

// NewLogObserver returns an Observer that logs every diagnostic to logger,
// warnings at Warn level and errors at Error level.
func NewLogObserver(logger hclog.Logger) Observer {
	return func(w Warning) {
		args := []interface{}{"kind", string(w.Kind), "raw", w.Raw}
		if w.Line > 0 {
			args = append([]interface{}{"line", w.Line}, args...)
		}
		if w.IsError() {
			logger.Error(w.Message, args...)
			return
		}
		logger.Warn(w.Message, args...)
	}
}

// NewHCLogger creates the hclog.Logger used for diagnostics.
func NewHCLogger(name string, output io.Writer, level hclog.Level, color bool) hclog.Logger {
	colorOpt := hclog.ColorOff
	if color {
		colorOpt = hclog.AutoColor
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  level,
		Output: output,
		Color:  colorOpt,
	})
}
