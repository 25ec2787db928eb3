// Package logging wraps bolt with the structured fields the change
// request workflow emits: request identifiers, status transitions,
// audit actions and actors.
package logging

import (
	"os"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"
)

// Config controls where and how the service logs.
type Config struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string

	// Format selects the handler: "console" for local runs, "json" for
	// production log shipping.
	Format string

	// Output is the destination. Defaults to stdout.
	Output *os.File
}

// DefaultConfig logs human-readable output at info level.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
		Output: os.Stdout,
	}
}

// ProductionConfig logs JSON at info level.
func ProductionConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stdout,
	}
}

var levelNames = map[string]bolt.Level{
	"trace": bolt.TRACE,
	"debug": bolt.DEBUG,
	"info":  bolt.INFO,
	"warn":  bolt.WARN,
	"error": bolt.ERROR,
}

// parseLevel maps a level name to bolt's level. Unknown names fall
// back to info.
func parseLevel(name string) bolt.Level {
	if level, ok := levelNames[name]; ok {
		return level
	}
	return bolt.INFO
}

var (
	defaultLogger *bolt.Logger
	once          sync.Once
)

// Init configures the package logger. Only the first call takes
// effect; later calls are ignored.
func Init(config Config) {
	once.Do(func() {
		output := config.Output
		if output == nil {
			output = os.Stdout
		}

		var handler bolt.Handler
		if config.Format == "json" {
			handler = bolt.NewJSONHandler(output)
		} else {
			handler = bolt.NewConsoleHandler(output)
		}

		defaultLogger = bolt.New(handler).SetLevel(parseLevel(config.Level))
	})
}

// Get returns the package logger, initializing with defaults if Init
// was never called.
func Get() *bolt.Logger {
	if defaultLogger == nil {
		Init(DefaultConfig())
	}
	return defaultLogger
}

// LogEvent carries a bolt event through Field application.
type LogEvent struct {
	event *bolt.Event
}

// NewEvent wraps a bolt event so Fields can be chained onto it.
func NewEvent(e *bolt.Event) *LogEvent {
	return &LogEvent{event: e}
}

// Add applies a field and returns the event for chaining.
func (l *LogEvent) Add(f Field) *LogEvent {
	l.event = f(l.event)
	return l
}

// Msg emits the event with a message.
func (l *LogEvent) Msg(msg string) {
	l.event.Msg(msg)
}

// Send emits the event without a message.
func (l *LogEvent) Send() {
	l.event.Send()
}

// Leveled entry points on the package logger.

func Debug() *LogEvent {
	return &LogEvent{event: Get().Debug()}
}

func Info() *LogEvent {
	return &LogEvent{event: Get().Info()}
}

func Warn() *LogEvent {
	return &LogEvent{event: Get().Warn()}
}

func Error() *LogEvent {
	return &LogEvent{event: Get().Error()}
}
