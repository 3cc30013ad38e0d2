package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
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

// Logger appends timestamped lines to the roi log file. Loggers returned by
// Named share the parent's file, level and lock.
type Logger struct {
	*sink
	component string
}

type sink struct {
	mu       sync.Mutex
	level    LogLevel
	file     *os.File
	filePath string
	mirror   io.Writer
}

// NewLogger creates a new logger.
func NewLogger(level LogLevel, filePath string) (*Logger, error) {
	logger := &Logger{sink: &sink{
		level:    level,
		filePath: filePath,
	}}

	if level == LogLevelOff || filePath == "" {
		return logger, nil
	}

	filePath = ExpandHome(filePath)

	// Ensure directory exists
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	// Open log file
	// #nosec G304 -- log file path is from validated config
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	logger.file = f
	logger.filePath = filePath

	return logger, nil
}

// NewLoggerFromConfig opens the logger cfg describes. Verbose forces debug.
// When the file cannot be opened it returns NullLogger and the open error.
func NewLoggerFromConfig(cfg *Config, verbose bool) (*Logger, error) {
	level := ParseLogLevel(cfg.GetLoggingLevel())
	if verbose {
		level = LogLevelDebug
	}
	logger, err := NewLogger(level, cfg.GetLoggingFile())
	if err != nil {
		return NullLogger(), err
	}
	return logger, nil
}

// Named returns a logger that tags each line with component.
func (l *Logger) Named(component string) *Logger {
	return &Logger{sink: l.sink, component: component}
}

// Path returns the resolved log file path.
func (l *Logger) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filePath
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// SetLevel changes the log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.log(LogLevelDebug, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(LogLevelError, format, args...)
}

// Mirror copies every logged line to w as well as the log file. The CLI
// mirrors to stderr under --verbose. A nil w stops mirroring.
func (l *Logger) Mirror(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mirror = w
}

func (l *Logger) log(level LogLevel, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.level == LogLevelOff || level > l.level || (l.file == nil && l.mirror == nil) {
		return
	}

	var line strings.Builder
	line.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	line.WriteString(" [" + strings.ToUpper(level.String()) + "] ")
	if l.component != "" {
		line.WriteString(l.component + ": ")
	}
	fmt.Fprintf(&line, format, args...)
	line.WriteByte('\n')

	if l.file != nil {
		_, _ = io.WriteString(l.file, line.String())
	}
	if l.mirror != nil {
		_, _ = io.WriteString(l.mirror, line.String())
	}
}

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	return &Logger{sink: &sink{level: LogLevelOff}}
}
