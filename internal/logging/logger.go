package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level represents log severity levels.
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

// ParseLevel converts a string to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// entry is one structured log line.
type entry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Component string                 `json:"component,omitempty"`
	TraceID   string                 `json:"trace_id,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger is a leveled structured logger. Derived loggers share the
// output writer; fields and component/trace metadata are copied.
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	level     Level
	component string
	traceID   string
	fields    map[string]interface{}
}

// Config holds logger configuration.
type Config struct {
	Level  string `json:"level"`
	Output string `json:"output"` // "stdout", "stderr", or a file path
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// New creates a logger with the given configuration.
func New(cfg *Config) *Logger {
	var output io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		output = os.Stderr
	} else if cfg.Output != "" && cfg.Output != "stdout" {
		if file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			output = file
		}
	}
	return &Logger{
		output: output,
		level:  ParseLevel(cfg.Level),
		fields: make(map[string]interface{}),
	}
}

// Default returns the process-wide logger instance.
func Default() *Logger {
	once.Do(func() {
		defaultLogger = New(&Config{Level: "INFO", Output: "stdout"})
	})
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) { defaultLogger = l }

// NewTraceID returns a fresh trace identifier for one evaluation cycle.
func NewTraceID() string { return uuid.NewString() }

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(component string) *Logger {
	nl := l.clone()
	nl.component = component
	return nl
}

// WithTraceID returns a logger carrying the given trace ID.
func (l *Logger) WithTraceID(traceID string) *Logger {
	nl := l.clone()
	nl.traceID = traceID
	return nl
}

// WithField returns a logger with one extra field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	nl := l.clone()
	nl.fields[key] = value
	return nl
}

// WithError returns a logger with an error field; a nil error is a
// no-op.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *Logger) clone() *Logger {
	fields := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return &Logger{
		output:    l.output,
		level:     l.level,
		component: l.component,
		traceID:   l.traceID,
		fields:    fields,
	}
}

func (l *Logger) log(level Level, msg string, kv ...interface{}) {
	if level < l.level {
		return
	}
	e := entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   msg,
		Component: l.component,
		TraceID:   l.traceID,
	}
	if len(l.fields) > 0 || len(kv) > 0 {
		e.Fields = make(map[string]interface{}, len(l.fields)+len(kv)/2)
		for k, v := range l.fields {
			e.Fields[k] = v
		}
		for i := 0; i+1 < len(kv); i += 2 {
			key, ok := kv[i].(string)
			if !ok {
				continue
			}
			if err, isErr := kv[i+1].(error); isErr && err != nil {
				e.Fields[key] = err.Error()
				continue
			}
			e.Fields[key] = kv[i+1]
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	data, _ := json.Marshal(e)
	fmt.Fprintln(l.output, string(data))
}

// Debug logs a debug message with optional key-value fields.
func (l *Logger) Debug(msg string, kv ...interface{}) { l.log(DEBUG, msg, kv...) }

// Info logs an info message with optional key-value fields.
func (l *Logger) Info(msg string, kv ...interface{}) { l.log(INFO, msg, kv...) }

// Warn logs a warning message with optional key-value fields.
func (l *Logger) Warn(msg string, kv ...interface{}) { l.log(WARN, msg, kv...) }

// Error logs an error message with optional key-value fields.
func (l *Logger) Error(msg string, kv ...interface{}) { l.log(ERROR, msg, kv...) }

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(msg string, kv ...interface{}) {
	l.log(FATAL, msg, kv...)
	os.Exit(1)
}
