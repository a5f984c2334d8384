package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup builds the process logger. Runs are interactive, so output is always
// the console writer; debug mode lowers the level and adds caller info.
func Setup(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()

	if debug {
		logger = logger.With().Caller().Logger()
	}

	return logger
}
