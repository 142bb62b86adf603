package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level represents the logging level.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var levelColors = map[Level]string{
	DEBUG: "\033[36m", // Cyan
	INFO:  "\033[32m", // Green
	WARN:  "\033[33m", // Yellow
	ERROR: "\033[31m", // Red
}

const colorReset = "\033[0m"

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel converts a level name to a Level. Unknown names are an error.
func ParseLevel(levelStr string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO", "":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", levelStr)
	}
}

// Logger writes levelled, optionally coloured lines. Its methods are safe
// for concurrent use.
type Logger struct {
	mu          sync.Mutex
	level       Level
	out         *log.Logger
	colorEnable bool
}

// New creates a Logger writing to w.
func New(w io.Writer, level Level, color bool) *Logger {
	return &Logger{
		level:       level,
		out:         log.New(w, "", log.LstdFlags),
		colorEnable: color,
	}
}

// SetLevel changes the minimum level that is written.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetOutput changes the destination.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.SetOutput(w)
}

// SetColorEnable enables or disables color output.
func (l *Logger) SetColorEnable(enable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.colorEnable = enable
}

// Enabled reports whether messages at level are written.
func (l *Logger) Enabled(level Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level
}

// Logf writes a message at level if the level is sufficient.
func (l *Logger) Logf(level Level, format string, args ...interface{}) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	message := fmt.Sprintf(format, args...)
	if l.colorEnable {
		l.out.Printf("%s[%s]%s %s", levelColors[level], level, colorReset, message)
	} else {
		l.out.Printf("[%s] %s", level, message)
	}
}

var (
	defaultMu     sync.Mutex
	defaultLogger = New(os.Stderr, INFO, false)
)

// Default returns the process-wide logger.
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Init configures the process-wide logger from a level name and writer.
func Init(levelStr string, w io.Writer, color bool) error {
	level, err := ParseLevel(levelStr)
	if err != nil {
		return err
	}
	SetDefault(New(w, level, color))
	return nil
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) {
	Default().Logf(DEBUG, format, args...)
}

// Infof logs an info message.
func Infof(format string, args ...interface{}) {
	Default().Logf(INFO, format, args...)
}

// Warnf logs a warning message.
func Warnf(format string, args ...interface{}) {
	Default().Logf(WARN, format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) {
	Default().Logf(ERROR, format, args...)
}
