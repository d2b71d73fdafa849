package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"live-stats/src/models"

	"github.com/sirupsen/logrus"
)

// -----------------------------------------------------------------------------

var (
	base     = logrus.New()
	baseOnce sync.Once
)

// -----------------------------------------------------------------------------

// Logger provides structured logging functionality
type Logger struct {
	name  string
	entry *logrus.Entry
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance.
// The first non-nil config configures level and format for the whole process.
func NewLogger(config *models.MConfig, name string) *Logger {
	if config != nil {
		baseOnce.Do(func() { configure(config) })
	}
	return &Logger{
		name:  name,
		entry: base.WithField("component", name),
	}
}

// -----------------------------------------------------------------------------

func configure(config *models.MConfig) {
	base.SetOutput(os.Stdout)
	base.SetLevel(ParseLevel(config.LogLevel))
	if strings.EqualFold(config.LogFormat, "json") {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// ParseLevel maps config levels (DEBUG, INFO, WARNING, ERROR) to logrus levels.
func ParseLevel(level string) logrus.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return logrus.DebugLevel
	case "WARNING", "WARN":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// SetOutput redirects every logger, mostly for tests and the terminal renderer.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// -----------------------------------------------------------------------------

// Name returns the component name
func (l *Logger) Name() string {
	return l.name
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}
