package logger

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is the structured logger shared by every component. Component names
// the subsystem emitting the entry (Coordinator, Loader, GUIManager, ...).
type Logger interface {
	Debug(component, message string, fields map[string]interface{})
	Info(component, message string, fields map[string]interface{})
	Warning(component, message string, fields map[string]interface{})
	Error(component string, err error, fields map[string]interface{})
}

// Options selects the output format and level of a logger built by New.
type Options struct {
	Level  string
	JSON   bool
	Writer io.Writer
}

// ParseLevel maps a textual level ("debug", "warn", ...) to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return parsed
}

// NoOpLogger discards everything. Used by tests and headless helpers.
type NoOpLogger struct{}

func (NoOpLogger) Debug(component, message string, fields map[string]interface{})   {}
func (NoOpLogger) Info(component, message string, fields map[string]interface{})    {}
func (NoOpLogger) Warning(component, message string, fields map[string]interface{}) {}
func (NoOpLogger) Error(component string, err error, fields map[string]interface{})  {}
