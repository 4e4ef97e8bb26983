// Package logutil builds the zerolog root logger for the CLI.
package logutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New returns a logger at the given level. With an empty file the logger
// writes to stderr, using a console writer on a TTY; otherwise JSON lines go
// to the file. The returned closer releases the log file.
func New(level, file string) (zerolog.Logger, func(), error) {
	closer := func() {}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, closer, fmt.Errorf("parse log level: %w", err)
	}

	var writer = os.Stderr
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Logger{}, closer, err
		}
		closer = func() { _ = f.Close() }
		logger := zerolog.New(f).With().Timestamp().Logger().Level(lvl)
		return logger, closer, nil
	}

	var out zerolog.Logger
	if isatty.IsTerminal(writer.Fd()) {
		out = zerolog.New(zerolog.ConsoleWriter{Out: writer})
	} else {
		out = zerolog.New(writer)
	}
	return out.With().Timestamp().Logger().Level(lvl), closer, nil
}
