package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	base  zerolog.Logger
	ready bool
)

// Options configures the base logger.
//
// Fields:
//   - Level: debug|info|warn|error (default: info)
//   - Pretty: human-readable console output instead of JSON
//   - Out: destination writer (default: os.Stdout)
type Options struct {
	Level  string
	Pretty bool
	Out    io.Writer
}

// Init configures the base JSON logger. main calls it once after loading
// configuration; everything else either receives a child logger built with
// Named or, for HTTP middleware, reads L().
func Init(opts Options) {
	level := parseLevel(opts.Level)

	zerolog.TimeFieldFormat = time.RFC3339Nano
	var w = opts.Out
	if w == nil {
		w = os.Stdout
	}
	if opts.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	base = zerolog.New(w).With().Timestamp().Logger().Level(level)
	ready = true
}

// L returns the base logger, initializing it with defaults if Init was never called.
func L() *zerolog.Logger {
	if !ready {
		Init(Options{})
	}
	return &base
}

// Named returns a child of the base logger tagged with a component field.
// Constructors take the result by value so each component owns its handle.
func Named(component string) zerolog.Logger {
	return L().With().Str("component", component).Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
