// Package logging provides the structured logger shared by every tier of
// the execution core. It replaces the debug fmt.Printf calls the teacher
// repo sprinkles through its VM (e.g. pkg/vm/cache.go's PrintCacheStats)
// with leveled, structured events that can be filtered per subsystem.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with the subsystem names the execution
// core's tiers use as consistent field keys.
type Logger struct {
	zerolog.Logger
}

// New builds a logger writing to w at the given level. Passing nil for w
// defaults to os.Stderr.
func New(w io.Writer, level zerolog.Level) Logger {
	if w == nil {
		w = os.Stderr
	}
	base := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return Logger{base}
}

// Nop returns a logger that discards everything, for tests and
// benchmark-only call sites that don't want log noise.
func Nop() Logger {
	return Logger{zerolog.Nop()}
}

// Tier returns a child logger tagged with the compilation tier name
// ("baseline", "tracing", "ir", ...). The baseline compiler and the tracer
// use it and log each finished baseline compile, each trace compile and
// each failed trace compile.
func (l Logger) Tier(name string) Logger {
	return Logger{l.Logger.With().Str("tier", name).Logger()}
}

// Elapsed returns a zerolog field helper for logging a duration as
// milliseconds, used for JIT compile-time and trace-record-time events.
func Elapsed(since time.Time) (string, float64) {
	return "elapsed_ms", float64(time.Since(since).Microseconds()) / 1000.0
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
