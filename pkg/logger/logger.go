// Package logger provides the structured logger shared by every component.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is a logrus logger that stamps every entry with the component name.
type Logger struct {
	*logrus.Logger
	name string
}

// New builds a logger for the named component. Unknown levels fall back to
// info; format is "json" or anything else for text.
func New(name, level, format string) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &Logger{Logger: base, name: name}
}

// NewDefault returns an info-level text logger.
func NewDefault(name string) *Logger {
	return New(name, "info", "text")
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	l := New("discard", "panic", "text")
	l.SetOutput(io.Discard)
	return l
}

// Name reports the component name.
func (l *Logger) Name() string { return l.name }

// Named derives a logger for a sub-component sharing output and level.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger, name: name}
}

// WithField starts an entry carrying the component name and one field.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.entry().WithField(key, value)
}

// WithFields starts an entry carrying the component name and fields.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.entry().WithFields(fields)
}

// WithError starts an entry carrying the component name and an error.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.entry().WithError(err)
}

func (l *Logger) entry() *logrus.Entry {
	return l.Logger.WithField("service", l.name)
}
