package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// JSONLogger implements Logger on top of a zap core writing one JSON object
// per line. Call-site fields are nested under "fields".
type JSONLogger struct {
	z     *zap.Logger
	level zap.AtomicLevel
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// NewJSONLogger creates a new JSON logger
func NewJSONLogger(writer io.Writer, level Level) *JSONLogger {
	atom := zap.NewAtomicLevelAt(level.zapLevel())
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(writer), atom)
	return &JSONLogger{
		z:     zap.New(core).With(zap.Namespace("fields")),
		level: atom,
	}
}

// NewProductionLogger builds a logger from zap's production config, writing
// to the given output paths ("stdout", "stderr" or file names).
func NewProductionLogger(level Level, outputPaths ...string) (*JSONLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level.zapLevel())
	cfg.EncoderConfig = encoderConfig()
	cfg.Sampling = nil
	if len(outputPaths) > 0 {
		cfg.OutputPaths = outputPaths
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &JSONLogger{z: z.With(zap.Namespace("fields")), level: cfg.Level}, nil
}

// NewDefaultLogger creates a logger that writes to stdout at INFO level
func NewDefaultLogger() *JSONLogger {
	return NewJSONLogger(os.Stdout, InfoLevel)
}

func toZap(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = f.zap()
	}
	return out
}

// Debug logs a debug-level message
func (l *JSONLogger) Debug(msg string, fields ...Field) {
	l.z.Debug(msg, toZap(fields)...)
}

// Info logs an info-level message
func (l *JSONLogger) Info(msg string, fields ...Field) {
	l.z.Info(msg, toZap(fields)...)
}

// Warn logs a warning-level message
func (l *JSONLogger) Warn(msg string, fields ...Field) {
	l.z.Warn(msg, toZap(fields)...)
}

// Error logs an error-level message
func (l *JSONLogger) Error(msg string, fields ...Field) {
	l.z.Error(msg, toZap(fields)...)
}

// With creates a child logger with the given fields pre-set. The child
// shares the parent's level.
func (l *JSONLogger) With(fields ...Field) Logger {
	return &JSONLogger{
		z:     l.z.With(toZap(fields)...),
		level: l.level,
	}
}

// SetLevel sets the minimum log level
func (l *JSONLogger) SetLevel(level Level) {
	l.level.SetLevel(level.zapLevel())
}

// GetLevel returns the current log level
func (l *JSONLogger) GetLevel() Level {
	return fromZapLevel(l.level.Level())
}

// Sync flushes buffered log entries
func (l *JSONLogger) Sync() error {
	return l.z.Sync()
}

// Zap exposes the underlying zap logger
func (l *JSONLogger) Zap() *zap.Logger {
	return l.z
}

// Global default logger
var (
	defaultLogger Logger
	defaultMu     sync.RWMutex
	once          sync.Once
)

// DefaultLogger returns the global default logger
func DefaultLogger() Logger {
	once.Do(func() {
		level := InfoLevel
		if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
			level = ParseLevel(levelStr)
		}
		defaultMu.Lock()
		if defaultLogger == nil {
			defaultLogger = NewJSONLogger(os.Stdout, level)
		}
		defaultMu.Unlock()
	})
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// StartTimer begins timing an operation
func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{
		logger: logger,
		msg:    msg,
		start:  time.Now(),
		fields: fields,
	}
}

// End logs the operation with its duration at debug level
func (t *TimedOperation) End() {
	t.logger.Debug(t.msg, append(t.fields, Latency(time.Since(t.start)))...)
}

// EndError logs the operation as a warning with its duration and error
func (t *TimedOperation) EndError(err error) {
	t.logger.Warn(t.msg, append(t.fields, Latency(time.Since(t.start)), Error(err))...)
}
