// Package logger provides the engine's structured logger and the
// query-activity observer built on top of it (spec.md §5 "Activity
// logger"). The leveled/pluggable-formatter logger is adapted from the
// teacher repo's logger package; the activity observer is the Go
// rendering of original_source/include/utils/activity_logger.h.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level defines log severities, lowest to highest.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Output pairs a writer with the formatter used to render entries to it.
type Output struct {
	Writer    io.Writer
	Formatter Formatter
}

// Formatter renders an Entry to bytes.
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// TextFormatter renders entries as single human-readable lines.
type TextFormatter struct {
	TimeFormat string
}

// JSONFormatter renders entries as JSON objects, one per line.
type JSONFormatter struct {
	TimeFormat string
}

// Entry is one emitted log record.
type Entry struct {
	Timestamp time.Time
	Level     Level
	Component string
	Message   string
	Fields    map[string]interface{}
	Caller    string
}

// Logger is a leveled, multi-output, component-tagged logger.
type Logger struct {
	mu        sync.Mutex
	level     Level
	outputs   []Output
	context   map[string]interface{}
	callDepth int
}

// Config configures a new Logger.
type Config struct {
	Level     Level
	Outputs   []Output
	Context   map[string]interface{}
	CallDepth int
}

func (f *TextFormatter) Format(e *Entry) ([]byte, error) {
	timeStr := e.Timestamp.Format(f.TimeFormat)
	var fieldsStr string
	for k, v := range e.Fields {
		fieldsStr += fmt.Sprintf(" %s=%v", k, v)
	}
	comp := ""
	if e.Component != "" {
		comp = fmt.Sprintf("[%s] ", e.Component)
	}
	return []byte(fmt.Sprintf("%s [%s] %s%s%s\n", timeStr, e.Level, comp, e.Message, fieldsStr)), nil
}

func (f *JSONFormatter) Format(e *Entry) ([]byte, error) {
	data := map[string]interface{}{
		"timestamp": e.Timestamp.Format(f.TimeFormat),
		"level":     e.Level.String(),
		"message":   e.Message,
	}
	if e.Component != "" {
		data["component"] = e.Component
	}
	if len(e.Fields) > 0 {
		data["fields"] = e.Fields
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// New creates a Logger; with no outputs configured it writes text lines
// to stdout.
func New(cfg Config) *Logger {
	if len(cfg.Outputs) == 0 {
		cfg.Outputs = []Output{{Writer: os.Stdout, Formatter: &TextFormatter{TimeFormat: "2006-01-02 15:04:05"}}}
	}
	if cfg.CallDepth == 0 {
		cfg.CallDepth = 2
	}
	return &Logger{level: cfg.Level, outputs: cfg.Outputs, context: cfg.Context, callDepth: cfg.CallDepth}
}

func (l *Logger) caller() string {
	if pc, file, line, ok := runtime.Caller(l.callDepth); ok {
		return fmt.Sprintf("%s:%d %s", filepath.Base(file), line, filepath.Base(runtime.FuncForPC(pc).Name()))
	}
	return ""
}

func (l *Logger) emit(level Level, component, message string, fields map[string]interface{}) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	merged := make(map[string]interface{}, len(l.context)+len(fields))
	for k, v := range l.context {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	entry := &Entry{Timestamp: time.Now(), Level: level, Component: component, Message: message, Fields: merged, Caller: l.caller()}
	for _, out := range l.outputs {
		if b, err := out.Formatter.Format(entry); err == nil {
			out.Writer.Write(b)
		}
	}
	if level == FATAL {
		os.Exit(1)
	}
}

func (l *Logger) Debug(component, message string, fields map[string]interface{}) {
	l.emit(DEBUG, component, message, fields)
}
func (l *Logger) Info(component, message string, fields map[string]interface{}) {
	l.emit(INFO, component, message, fields)
}
func (l *Logger) Warn(component, message string, fields map[string]interface{}) {
	l.emit(WARN, component, message, fields)
}
func (l *Logger) Error(component, message string, fields map[string]interface{}) {
	l.emit(ERROR, component, message, fields)
}

// WithContext returns a derived logger that always includes the given
// fields, preserving the teacher's composable-context pattern.
func (l *Logger) WithContext(context map[string]interface{}) *Logger {
	merged := make(map[string]interface{}, len(l.context)+len(context))
	for k, v := range l.context {
		merged[k] = v
	}
	for k, v := range context {
		merged[k] = v
	}
	return &Logger{level: l.level, outputs: l.outputs, callDepth: l.callDepth, context: merged}
}

// SetLevel changes the minimum emitted level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// RotatingFileConfig configures a size/age-rotated log file, matching the
// teacher's monitoring.LogConfig rotation knobs (MaxSize in megabytes).
type RotatingFileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// RotatingFileWriter returns an io.Writer that rotates the underlying file
// per cfg, for use as an Output's Writer. Grounded on the teacher's
// monitoring/logger.go, which configures a *lumberjack.Logger per output
// path instead of writing straight to an *os.File.
func RotatingFileWriter(cfg RotatingFileConfig) io.Writer {
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}
