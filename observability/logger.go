package observability

import (
	"io"
	"log"
	"os"
)

// Logger is a small leveled wrapper around the standard library logger,
// matching the bare log.Logger the teacher's cmd binaries reach for
// instead of pulling in a structured logging framework.
type Logger struct {
	*log.Logger
	debug bool
}

// NewLogger returns a Logger writing to os.Stderr with a package-name prefix.
func NewLogger(prefix string, debug bool) *Logger {
	return &Logger{
		Logger: log.New(os.Stderr, prefix+" ", log.LstdFlags|log.Lmicroseconds),
		debug:  debug,
	}
}

func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || !l.debug {
		return
	}
	l.Printf("DEBUG "+format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	if l == nil {
		return
	}
	l.Printf("INFO "+format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.Printf("WARN "+format, args...)
}

// Discard is a Logger that drops everything; a nil *Logger also works
// for this purpose since all methods are nil-safe.
var Discard = &Logger{Logger: log.New(io.Discard, "", 0)}
