// Package logger provides structured JSON logging with PII redaction.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
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

// ParseLevel maps a level name to a Level. Unknown names map to INFO.
func ParseLevel(name string) Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// sink is shared by a logger and every child created with With.
type sink struct {
	mu        sync.Mutex
	out       io.Writer
	level     Level
	redactPII bool
}

// Logger writes JSON lines. Fields added with With are included on every
// entry.
type Logger struct {
	sink   *sink
	fields []interface{}
}

// New creates a logger writing to w.
func New(w io.Writer, level Level, redactPII bool) *Logger {
	return &Logger{sink: &sink{out: w, level: level, redactPII: redactPII}}
}

var defaultLogger = New(os.Stderr, INFO, true)

// Default returns the process-wide logger.
func Default() *Logger { return defaultLogger }

// SetLevel sets the minimum log level for the default logger.
func SetLevel(l Level) {
	defaultLogger.sink.mu.Lock()
	defaultLogger.sink.level = l
	defaultLogger.sink.mu.Unlock()
}

// SetRedactPII enables or disables PII redaction for the default logger.
func SetRedactPII(r bool) {
	defaultLogger.sink.mu.Lock()
	defaultLogger.sink.redactPII = r
	defaultLogger.sink.mu.Unlock()
}

// With returns a child logger that adds the given key-value pairs to every
// entry.
func (l *Logger) With(fields ...interface{}) *Logger {
	merged := make([]interface{}, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{sink: l.sink, fields: merged}
}

// Component is shorthand for With("component", name).
func Component(name string) *Logger { return defaultLogger.With("component", name) }

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { defaultLogger.log(DEBUG, msg, fields...) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { defaultLogger.log(INFO, msg, fields...) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { defaultLogger.log(WARN, msg, fields...) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { defaultLogger.log(ERROR, msg, fields...) }

func (l *Logger) Debug(msg string, fields ...interface{}) { l.log(DEBUG, msg, fields...) }
func (l *Logger) Info(msg string, fields ...interface{})  { l.log(INFO, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...interface{})  { l.log(WARN, msg, fields...) }
func (l *Logger) Error(msg string, fields ...interface{}) { l.log(ERROR, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if level < l.sink.level {
		return
	}

	entry := map[string]interface{}{
		"time":  time.Now().UTC().Format(time.RFC3339),
		"level": levelNames[level],
		"msg":   msg,
	}

	all := fields
	if len(l.fields) > 0 {
		all = append(append([]interface{}{}, l.fields...), fields...)
	}
	// Parse key-value pairs from fields
	for i := 0; i < len(all)-1; i += 2 {
		key := fmt.Sprintf("%v", all[i])
		val := fmt.Sprintf("%v", all[i+1])
		if l.sink.redactPII {
			val = redactPIIValue(key, val)
		}
		entry[key] = val
	}

	data, _ := json.Marshal(entry)
	fmt.Fprintln(l.sink.out, string(data))
}
