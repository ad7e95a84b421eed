package main

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// newLogger returns a timestamped logger writing to w at the given level.
func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger().Level(level)
}

// parseLevel parses a string which represents a log level and returns
// a zerolog.Level.
func parseLevel(level string, defaultLevel zerolog.Level) zerolog.Level {
	l := defaultLevel
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "0", "debug":
		l = zerolog.DebugLevel
	case "1", "info":
		l = zerolog.InfoLevel
	case "2", "warn":
		l = zerolog.WarnLevel
	case "3", "error":
		l = zerolog.ErrorLevel
	case "4", "fatal":
		l = zerolog.FatalLevel
	case "off", "disabled":
		l = zerolog.Disabled
	}
	return l
}
