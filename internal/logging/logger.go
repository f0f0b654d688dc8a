// Package logging builds the structured logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects level and destination.
type Options struct {
	Level      string // debug, info, warn or error
	File       string // Empty writes to Output
	MaxSizeMB  int
	MaxBackups int
	Output     io.Writer // Defaults to stderr
}

// New returns a logger emitting one JSON object per entry. When File is set the
// output is rotated by size.
func New(opts Options) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		level = parsed
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "event",
		},
	})

	switch {
	case opts.File != "":
		logger.SetOutput(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		})
	case opts.Output != nil:
		logger.SetOutput(opts.Output)
	default:
		logger.SetOutput(os.Stderr)
	}

	return logger, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
