// Package logging provides leveled, component-scoped console logging for the
// synchronization layer and the services built on it.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel converts a config string ("debug", "WARN", ...) into a Level.
// Unknown values fall back to LevelInfo.
func ParseLevel(s string) Level {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := levelPriority[l]; ok {
		return l
	}
	return LevelInfo
}

// sink is shared by a logger and all of its children so SetOutput/SetLevel on
// the root reaches every component.
type sink struct {
	mu       sync.Mutex
	output   io.Writer
	minLevel Level
}

// Logger writes lines of the form: LEVEL TIMESTAMP [component] message key=value ...
type Logger struct {
	sink      *sink
	component string
}

// New creates a Logger writing INFO and above to stdout.
func New() *Logger {
	return &Logger{sink: &sink{output: os.Stdout, minLevel: LevelInfo}}
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *Logger {
	return &Logger{sink: &sink{output: io.Discard, minLevel: LevelError}}
}

// WithComponent returns a child logger tagged with component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{sink: l.sink, component: component}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.sink.mu.Lock()
	l.sink.minLevel = level
	l.sink.mu.Unlock()
}

// SetOutput sets the output writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.sink.mu.Lock()
	l.sink.output = w
	l.sink.mu.Unlock()
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields renders fields as sorted key=value pairs.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return " " + strings.Join(parts, " ")
}

func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if l == nil {
		return
	}
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if levelPriority[level] < levelPriority[l.sink.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}
	l.sink.output.Write([]byte(line))
}

// --- Synchronization-layer events ---

// CacheReadFailed logs a durable cache entry that could not be read or parsed.
// The caller falls back to its default value.
func (l *Logger) CacheReadFailed(key string, err error) {
	l.Warn("cache_read_failed", map[string]interface{}{
		"key":   key,
		"error": err.Error(),
	})
}

// CacheWriteFailed logs a write-through that did not reach durable storage.
func (l *Logger) CacheWriteFailed(key string, err error) {
	l.Warn("cache_write_failed", map[string]interface{}{
		"key":   key,
		"error": err.Error(),
	})
}

// ReconcileResult logs the terminal state of a one-shot reconciliation.
func (l *Logger) ReconcileResult(key, resource, outcome string, duration time.Duration) {
	l.Debug("reconcile", map[string]interface{}{
		"key":      key,
		"resource": resource,
		"outcome":  outcome,
		"duration": duration.String(),
	})
}

// RemoteCall logs a call against the remote source.
func (l *Logger) RemoteCall(op, resource string, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"op":       op,
		"resource": resource,
		"duration": duration.String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Warn("remote_error", fields)
		return
	}
	l.Debug("remote_call", fields)
}

// Request logs a served HTTP request.
func (l *Logger) Request(method, path string, status int, duration time.Duration) {
	l.Info("request", map[string]interface{}{
		"method":   method,
		"path":     path,
		"status":   status,
		"duration": duration.String(),
	})
}
