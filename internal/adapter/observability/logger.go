// Package observability provides the leveled, structured logger used by
// the review pipeline.
package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/kestrelci/reviewbot/internal/usecase/review"
)

var _ review.Logger = (*Logger)(nil)

// Level defines the logging verbosity level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
)

// ParseLevel maps a config string to a Level. Unknown values default to
// info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warning", "warn":
		return LevelWarning
	default:
		return LevelInfo
	}
}

// Format defines the output format for logs.
type Format int

const (
	FormatHuman Format = iota
	FormatJSON
)

// Logger writes structured logs to the given writer.
type Logger struct {
	level  Level
	format Format
	out    *log.Logger
}

// NewLogger creates a logger with the specified level and format.
func NewLogger(level Level, format Format, w io.Writer) *Logger {
	return &Logger{
		level:  level,
		format: format,
		out:    log.New(w, "", 0),
	}
}

// LogInfo logs an informational message with structured fields.
func (l *Logger) LogInfo(ctx context.Context, message string, fields map[string]interface{}) {
	if l.level > LevelInfo {
		return
	}
	l.write("info", message, fields)
}

// LogWarning logs a warning message with structured fields.
func (l *Logger) LogWarning(ctx context.Context, message string, fields map[string]interface{}) {
	l.write("warning", message, fields)
}

func (l *Logger) write(level, message string, fields map[string]interface{}) {
	if l.format == FormatJSON {
		entry := map[string]interface{}{
			"level":     level,
			"message":   message,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		for k, v := range fields {
			entry[k] = v
		}
		data, err := json.Marshal(entry)
		if err != nil {
			l.out.Printf(`{"level":"warning","message":"failed to marshal log entry: %v"}`, err)
			return
		}
		l.out.Print(string(data))
		return
	}

	line := fmt.Sprintf("[%s] %s", humanLabel(level), message)
	for _, k := range sortedKeys(fields) {
		line += fmt.Sprintf(" %s=%v", k, fields[k])
	}
	l.out.Print(line)
}

func humanLabel(level string) string {
	switch level {
	case "info":
		return "INFO"
	case "warning":
		return "WARN"
	default:
		return "DEBUG"
	}
}

func sortedKeys(fields map[string]interface{}) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
