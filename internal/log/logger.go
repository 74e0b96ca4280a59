// Package log provides the process-wide zap logger and carries logging fields through contexts
package log

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelEnv is the environment variable overriding the default (debug) log level
const LevelEnv = "GEOREF_LOGLEVEL"

var _logger *zap.Logger
var defaultlogger *zap.Logger

type contextKey int

const (
	contextKeyFields contextKey = iota
)

func init() {
	Structured()
}

func setLogger(l *zap.Logger) {
	defaultlogger = l
}
func resetLogger() {
	defaultlogger = _logger
}

func install(l *zap.Logger) {
	if _logger != nil {
		_ = _logger.Sync()
	}
	_logger = l
	defaultlogger = l
}

// levelFromEnv parses the level set in LevelEnv, falling back to debug
func levelFromEnv() zap.AtomicLevel {
	lvl := zap.NewAtomicLevelAt(zap.DebugLevel)
	if v := os.Getenv(LevelEnv); v != "" {
		if err := lvl.UnmarshalText([]byte(v)); err != nil {
			lvl.SetLevel(zap.DebugLevel)
		}
	}
	return lvl
}

func structuredEncoder() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.LevelKey = "severity"
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.StacktraceKey = ""
	enc.MessageKey = "message"
	return enc
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02T15:04:05.000"))
}

func consoleEncoder(color bool) zapcore.EncoderConfig {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.LevelKey = "severity"
	enc.TimeKey = "timestamp"
	enc.EncodeTime = timeEncoder
	enc.StacktraceKey = ""
	enc.MessageKey = "message"
	if color {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return enc
}

func build(cfg zap.Config, enc zapcore.EncoderConfig) {
	cfg.EncoderConfig = enc
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.Level = levelFromEnv()
	l, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	install(l)
}

// Structured sets output to be JSON encoded on stderr
func Structured() {
	build(zap.NewProductionConfig(), structuredEncoder())
}

// Console sets output to be human-readable on stderr
func Console() {
	build(zap.NewDevelopmentConfig(), consoleEncoder(true))
}

// ToFile sends the logs to a size-rotated file. Output is JSON encoded unless console is set.
func ToFile(path string, console bool) {
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename: path,
		MaxSize:  128, // megabytes
		MaxAge:   28,  // days
		Compress: true,
	})
	var enc zapcore.Encoder
	if console {
		enc = zapcore.NewConsoleEncoder(consoleEncoder(false))
	} else {
		enc = zapcore.NewJSONEncoder(structuredEncoder())
	}
	install(zap.New(zapcore.NewCore(enc, w, levelFromEnv())))
}

// Replace installs l as the process logger until the returned function is called
func Replace(l *zap.Logger) (restore func()) {
	prev := defaultlogger
	defaultlogger = l
	return func() { defaultlogger = prev }
}

// Sync flushes the buffered entries of the process logger
func Sync() error {
	return _logger.Sync()
}

// Logger returns a logger that will print fields previously added to the context
func Logger(ctx context.Context) *zap.Logger {
	if flds, ok := ctx.Value(contextKeyFields).([]zap.Field); ok {
		return defaultlogger.With(flds...)
	}
	return defaultlogger
}

// With adds a key=value field to the returned context
func With(ctx context.Context, key string, value interface{}) context.Context {
	return WithFields(ctx, zap.Any(key, value))
}

// CopyContext returns a context derived from dst that contains the eventual logging
// keys that are contained in ctx
func CopyContext(ctx context.Context, dst context.Context) context.Context {
	cflds, ok := ctx.Value(contextKeyFields).([]zapcore.Field)
	if !ok {
		return dst
	}
	flds := append([]zapcore.Field{}, cflds...)
	if dflds, ok := dst.Value(contextKeyFields).([]zapcore.Field); ok {
		flds = append(flds, dflds...)
	}
	return context.WithValue(dst, contextKeyFields, flds)
}

// WithFields adds fields to the returned context
func WithFields(ctx context.Context, fields ...zapcore.Field) context.Context {
	flds, _ := ctx.Value(contextKeyFields).([]zap.Field)
	// copy so that sibling contexts never share the backing array
	fflds := make([]zap.Field, 0, len(flds)+len(fields))
	fflds = append(fflds, flds...)
	fflds = append(fflds, fields...)
	return context.WithValue(ctx, contextKeyFields, fflds)
}
