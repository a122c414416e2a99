// Package logger defines the structured logging contract used by the API client
// and its transports, together with a zerolog-backed implementation.
package logger

import "time"

// Logger creates leveled log events. Implementations must be safe for
// concurrent use because calls issued in parallel share one logger.
type Logger interface {
	Info() LogEvent
	Error() LogEvent
	Debug() LogEvent
	Warn() LogEvent
	WithFields(fields map[string]any) Logger
}

// LogEvent is a single structured log entry under construction.
// Nothing is written until Msg or Msgf is called.
type LogEvent interface {
	Msg(msg string)
	Msgf(format string, args ...any)
	Err(err error) LogEvent
	Str(key, value string) LogEvent
	Int(key string, value int) LogEvent
	Int64(key string, value int64) LogEvent
	Bool(key string, value bool) LogEvent
	Dur(key string, d time.Duration) LogEvent
	Interface(key string, i any) LogEvent
}
