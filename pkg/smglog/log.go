// Package smglog centralizes structured logging for the spectral memory
// graph. It wraps github.com/rs/zerolog so every package logs through the
// same sink with consistent "component"/"op" fields instead of reaching for
// fmt.Println or the standard log package.
//
// Example:
//
//	log := smglog.Component("spectral")
//	log.Info().Str("op", "build").Int("notes", n).Dur("elapsed", d).Msg("build complete")
package smglog

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu   sync.Mutex
	base zerolog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// Configure replaces the base logger's output and level. Call once at
// process startup (CLI main, or a test's TestMain); safe to call more than
// once, but not meant to be called concurrently with logging.
func Configure(w io.Writer, level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	base = zerolog.New(w).With().Timestamp().Logger().Level(level)
}

// Component returns a logger pre-tagged with the given component name
// (e.g. "embed", "spectral", "retrieval", "persistence").
func Component(name string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return base.With().Str("component", name).Logger()
}
