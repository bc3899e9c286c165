package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Service is stamped on every log line.
const Service = "quizattempt"

// Setup initializes the global zerolog configuration and returns the root logger.
//   - level: trace, debug, info, warn, error, fatal, panic (unknown values mean info)
//   - format: "pretty" for console output, anything else for JSON lines
func Setup(level, format string) zerolog.Logger {
	return New(os.Stdout, level, format)
}

// New is Setup with an explicit destination.
func New(out io.Writer, level, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	writer := out
	if format == "pretty" {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Str("service", Service).
		Logger()
}
