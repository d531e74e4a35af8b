package logger

import corelogger "github.com/kilianp07/streamhub/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.NopLogger

// Config selects the level and output format of loggers built by
// Configure. Format is "json" or "console"; an empty format falls back to
// the APP_ENV variable.
type Config struct {
	Level  string     `json:"level" yaml:"level"`
	Format string     `json:"format" yaml:"format"`
	File   FileConfig `json:"file" yaml:"file"`
}

// New returns a Logger for the given component.
func New(component string) Logger {
	return NewZerologLogger(component)
}
