package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level represents log level
type Level int32

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "debug"
	case INFO:
		return "info"
	case WARN:
		return "warn"
	case ERROR:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel parses a log level string
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// sink is shared by a logger and every logger derived from it with With
type sink struct {
	mu      sync.Mutex
	outputs []io.Writer
	level   atomic.Int32

	// nothing would ever be written, skip formatting entirely
	discard bool
}

// Logger writes leveled lines tagged with a source such as "tgreet/auth"
type Logger struct {
	sink   *sink
	source string
}

// NewLogger creates a new logger
func NewLogger(level Level, outputs []io.Writer, source string) *Logger {
	s := &sink{discard: true}
	for _, out := range outputs {
		if out != nil && out != io.Discard {
			s.outputs = append(s.outputs, out)
			s.discard = false
		}
	}
	s.level.Store(int32(level))

	return &Logger{sink: s, source: source}
}

// SetLevel sets the log level of this logger and all loggers sharing its outputs
func (l *Logger) SetLevel(level Level) {
	l.sink.level.Store(int32(level))
}

// Enabled reports whether a message at level would be written
func (l *Logger) Enabled(level Level) bool {
	return !l.sink.discard && level >= Level(l.sink.level.Load())
}

// With returns a logger writing to the same outputs under a sub-source
func (l *Logger) With(source string) *Logger {
	return &Logger{sink: l.sink, source: l.source + "/" + source}
}

func (l *Logger) logf(level Level, format string, args []any) {
	if !l.Enabled(level) {
		return
	}

	message := format
	if len(args) > 0 {
		message = fmt.Sprintf(format, args...)
	}
	line := fmt.Sprintf("[%s] %s: %s: %s\n",
		time.Now().Format("2006-01-02 15:04:05"), strings.ToUpper(level.String()), l.source, message)

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	for _, out := range l.sink.outputs {
		out.Write([]byte(line))
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...any) { l.logf(DEBUG, format, args) }

// Info logs an info message
func (l *Logger) Info(format string, args ...any) { l.logf(INFO, format, args) }

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...any) { l.logf(WARN, format, args) }

// Error logs an error message
func (l *Logger) Error(format string, args ...any) { l.logf(ERROR, format, args) }

// KeepRotated is how many rotated log files CreateLogFile leaves behind.
// The greeter starts on every boot, so old logs would pile up otherwise.
const KeepRotated = 3

// CreateLogFile opens logPath for appending, rotating it first when it is
// larger than maxSizeMB.
func CreateLogFile(logPath string, maxSizeMB int) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if info, err := os.Stat(logPath); err == nil && maxSizeMB > 0 && info.Size() > int64(maxSizeMB)*1024*1024 {
		if err := rotateLog(logPath, time.Now()); err != nil {
			return nil, err
		}
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// rotateLog moves logPath aside and prunes all but the newest KeepRotated copies
func rotateLog(logPath string, now time.Time) error {
	rotated := fmt.Sprintf("%s.%s", logPath, now.Format("20060102-150405"))
	if err := os.Rename(logPath, rotated); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	old, err := filepath.Glob(logPath + ".*")
	if err != nil || len(old) <= KeepRotated {
		return nil
	}
	// timestamps sort lexically
	sort.Strings(old)
	for _, path := range old[:len(old)-KeepRotated] {
		os.Remove(path)
	}
	return nil
}

// Global logger instance
var (
	globalLogger *Logger
	globalMu     sync.RWMutex

	discardLogger = NewLogger(ERROR, nil, "tgreet")
)

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// GetGlobalLogger returns the global logger instance.
// Until one is set, messages are discarded: a greeter owns the terminal.
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger == nil {
		return discardLogger
	}
	return globalLogger
}

// Global logging functions for convenience
func Info(format string, args ...any) {
	GetGlobalLogger().Info(format, args...)
}

func Warn(format string, args ...any) {
	GetGlobalLogger().Warn(format, args...)
}

func Error(format string, args ...any) {
	GetGlobalLogger().Error(format, args...)
}

func Debug(format string, args ...any) {
	GetGlobalLogger().Debug(format, args...)
}
