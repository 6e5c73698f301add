// Package logger provides the process-wide structured logger: a
// once-initialized package-level singleton fetched via Get(), emitting
// zerolog JSON lines tagged with the correlation id and stage.
package logger

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	base zerolog.Logger
	once sync.Once
)

// Init configures the default logger. Safe to call multiple times; only
// the first call takes effect.
func Init(level string) {
	once.Do(func() {
		zerolog.TimestampFieldName = "ts"
		lvl, err := zerolog.ParseLevel(level)
		if err != nil {
			lvl = zerolog.InfoLevel
		}
		base = zerolog.New(os.Stdout).
			Level(lvl).
			With().
			Timestamp().
			Str("service", "cvintake").
			Logger()
	})
}

// Get returns the process logger, initializing it at info level if
// nobody called Init yet.
func Get() zerolog.Logger {
	Init("info")
	return base
}

// ForCorrelation returns a logger scoped to a single intake job, carrying
// the correlation id on every subsequent log line. Every pipeline stage
// should log through this rather than the bare process logger.
func ForCorrelation(correlationID string) zerolog.Logger {
	return Get().With().Str("correlation_id", correlationID).Logger()
}

// ForStage further scopes a correlation-bound logger to one pipeline
// stage's name (e.g. "taxonomy_mapper", "relational_writer").
func ForStage(correlationID, stage string) zerolog.Logger {
	return ForCorrelation(correlationID).With().Str("stage", stage).Logger()
}
