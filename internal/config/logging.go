package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mrz1836/onboard/internal/fileutil"
)

// LogLevel represents logging verbosity levels.
type LogLevel int

// Log level constants.
const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelDebug
)

// ParseLogLevel parses a log level string.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LogLevelOff
	case "error":
		return LogLevelError
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelError
	}
}

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "off"
	case LogLevelError:
		return "error"
	case LogLevelDebug:
		return "debug"
	default:
		return "error"
	}
}

// logSink is the shared destination of a logger and its named children.
type logSink struct {
	mu    sync.Mutex
	level LogLevel
	out   io.Writer
	file  *os.File
}

// Logger writes leveled, timestamped lines to a log file.
// Named returns children that share the same file and level.
type Logger struct {
	sink      *logSink
	component string
}

// NewLogger creates a new logger writing to filePath.
func NewLogger(level LogLevel, filePath string) (*Logger, error) {
	sink := &logSink{level: level}
	logger := &Logger{sink: sink}

	if level == LogLevelOff || filePath == "" {
		return logger, nil
	}

	filePath = ExpandHome(filePath)

	if err := fileutil.EnsureParent(filePath); err != nil {
		return nil, err
	}

	// #nosec G304 -- log file path is from validated config
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, fileutil.FilePerm)
	if err != nil {
		return nil, err
	}

	sink.file = f
	sink.out = f

	return logger, nil
}

// NewWriterLogger creates a logger writing to w. Used by tests and the --log-stderr flag.
func NewWriterLogger(level LogLevel, w io.Writer) *Logger {
	return &Logger{sink: &logSink{level: level, out: w}}
}

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	return &Logger{sink: &logSink{level: LogLevelOff}}
}

// Named returns a child logger that prefixes lines with the component name.
func (l *Logger) Named(component string) *Logger {
	if l.component != "" {
		component = l.component + "." + component
	}
	return &Logger{sink: l.sink, component: component}
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if l.sink.file != nil {
		err := l.sink.file.Close()
		l.sink.file = nil
		l.sink.out = nil
		return err
	}
	return nil
}

// SetLevel changes the log level for the logger and all its children.
func (l *Logger) SetLevel(level LogLevel) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return l.sink.level
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.log(LogLevelDebug, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(LogLevelError, format, args...)
}

func (l *Logger) log(level LogLevel, format string, args ...any) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if l.sink.level == LogLevelOff || level > l.sink.level || l.sink.out == nil {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	levelStr := strings.ToUpper(level.String())
	msg := fmt.Sprintf(format, args...)

	if l.component != "" {
		_, _ = fmt.Fprintf(l.sink.out, "%s [%s] %s: %s\n", timestamp, levelStr, l.component, msg)
		return
	}
	_, _ = fmt.Fprintf(l.sink.out, "%s [%s] %s\n", timestamp, levelStr, msg)
}
