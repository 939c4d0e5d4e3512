package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is the logging interface passed through the application.
// Fields are alternating key/value pairs.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
}

type zerologLogger struct {
	log zerolog.Logger
}

func New(level string) Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	zl := zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	return &zerologLogger{log: zl}
}

func (l *zerologLogger) Debug(msg string, fields ...interface{}) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *zerologLogger) Info(msg string, fields ...interface{}) {
	l.log.Info().Fields(fields).Msg(msg)
}

func (l *zerologLogger) Warn(msg string, fields ...interface{}) {
	l.log.Warn().Fields(fields).Msg(msg)
}

func (l *zerologLogger) Error(msg string, fields ...interface{}) {
	l.log.Error().Fields(fields).Msg(msg)
}

func (l *zerologLogger) Fatal(msg string, fields ...interface{}) {
	l.log.Fatal().Fields(fields).Msg(msg)
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() Logger {
	return &zerologLogger{log: zerolog.Nop()}
}
