package core

import (
	"io"

	"github.com/charmbracelet/log"
)

// Logger returns l, or a logger that discards everything when l is nil.
func Logger(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return log.New(io.Discard)
}
