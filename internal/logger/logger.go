// Package logger provides structured logging for nestdb
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with nestdb-specific functionality
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // pretty-print for development
	Output     io.Writer
	WithCaller bool
}

// NewLogger creates a new structured logger
func NewLogger(cfg Config) *Logger {
	// Set global log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Pretty printing for development
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	// Create logger
	zlog := zerolog.New(output).
		With().
		Timestamp().
		Str("service", "nestdb").
		Logger()

	// Add caller information if requested
	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// GetZerolog returns the underlying zerolog logger
func (l *Logger) GetZerolog() *zerolog.Logger {
	return &l.zlog
}

// Info logs an info message
func (l *Logger) Info(msg string) *zerolog.Event {
	return l.zlog.Info().Str("msg", msg)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) *zerolog.Event {
	return l.zlog.Debug().Str("msg", msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) *zerolog.Event {
	return l.zlog.Warn().Str("msg", msg)
}

// Error logs an error message
func (l *Logger) Error(msg string) *zerolog.Event {
	return l.zlog.Error().Str("msg", msg)
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zlog.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zlog: ctx.Logger()}
}

// StoreLogger returns a logger scoped to a named datastore
func (l *Logger) StoreLogger(name string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "datastore").
			Str("store", name).
			Logger(),
	}
}

// WalLogger returns a logger scoped to the WAL page manager of a datastore
func (l *Logger) WalLogger(name string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "walpage").
			Str("store", name).
			Logger(),
	}
}

// PageProcLogger returns a logger scoped to a named pageproc job
// (migration, backup, or vacuum).
func (l *Logger) PageProcLogger(job string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "pageproc").
			Str("job", job).
			Logger(),
	}
}

// LogPageProcess logs the outcome of transforming one page.
func (l *Logger) LogPageProcess(pageIndex, records int, vacuumed int, err error) {
	event := l.zlog.Info().
		Str("component", "pageproc").
		Int("page", pageIndex).
		Int("records", records).
		Int("vacuumed", vacuumed)

	if err != nil {
		event = l.zlog.Error().
			Str("component", "pageproc").
			Int("page", pageIndex).
			Int("records", records).
			Int("vacuumed", vacuumed).
			Err(err)
	}

	event.Msg("page transform completed")
}

// LogMutation logs a completed insert/remove with structured fields
func (l *Logger) LogMutation(op string, durable bool, duration time.Duration, err error) {
	event := l.zlog.Debug().
		Str("component", "datastore").
		Str("op", op).
		Bool("durable", durable).
		Dur("duration_ms", duration)

	if err != nil {
		event = l.zlog.Warn().
			Str("component", "datastore").
			Str("op", op).
			Bool("durable", durable).
			Dur("duration_ms", duration).
			Err(err)
	}

	event.Msg("mutation completed")
}

// LogRecovery logs recovery progress for a datastore being opened durably
func (l *Logger) LogRecovery(pages int, records int, err error) {
	event := l.zlog.Info().
		Str("component", "recovery").
		Int("pages", pages).
		Int("records", records)

	if err != nil {
		event = l.zlog.Error().
			Str("component", "recovery").
			Int("pages", pages).
			Int("records", records).
			Err(err)
	}

	event.Msg("recovery replay completed")
}

// Global logger instance
var globalLogger *Logger

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(cfg Config) {
	globalLogger = NewLogger(cfg)
	log.Logger = *globalLogger.GetZerolog()
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		// Initialize with defaults if not set
		InitGlobalLogger(Config{
			Level:  "info",
			Pretty: true,
		})
	}
	return globalLogger
}
