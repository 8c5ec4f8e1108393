// Package logging defines the structured logging contract for the risk
// engine and its zap-backed implementation.  Scoring code, the orchestrator,
// and every store adapter log through the Logger interface; go.uber.org/zap
// stays confined to this package.
//
// The CLI builds one Logger from config at startup, stores it with
// SetDefault, and injects it down the constructor chain.  Run logs go to
// stderr so the run report on stdout stays machine-readable.
package logging

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fields
// ─────────────────────────────────────────────────────────────────────────────

// Field is one typed key-value pair on a log entry.  A concrete struct keeps
// call sites explicit and lets the zap adapter pick allocation-free encoders
// for the common types.
type Field struct {
	Key   string
	Value interface{}
}

// String builds a string-valued Field.
func String(key, val string) Field { return Field{Key: key, Value: val} }

// Int builds an int-valued Field.
func Int(key string, val int) Field { return Field{Key: key, Value: val} }

// Int64 builds an int64-valued Field.
func Int64(key string, val int64) Field { return Field{Key: key, Value: val} }

// Float64 builds a float64-valued Field.  Component scores and calibration
// values are logged through this.
func Float64(key string, val float64) Field { return Field{Key: key, Value: val} }

// Bool builds a bool-valued Field.
func Bool(key string, val bool) Field { return Field{Key: key, Value: val} }

// Duration builds a time.Duration-valued Field.
func Duration(key string, val time.Duration) Field { return Field{Key: key, Value: val} }

// Err puts an error under the canonical "error" key.  A nil error logs as
// the string "<nil>" rather than being dropped, so a mistaken call is
// visible in the output.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: "<nil>"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Any builds a Field from an arbitrary value.  Prefer the typed
// constructors; Any falls back to reflection-based encoding.
func Any(key string, val interface{}) Field { return Field{Key: key, Value: val} }

// ─────────────────────────────────────────────────────────────────────────────
// Logger contract
// ─────────────────────────────────────────────────────────────────────────────

// Logger is the engine-wide logging contract.  Constructors accept a Logger
// and treat nil as "use a nop", so tests run silent by default.
type Logger interface {
	// Debug records high-volume diagnostics (per-batch detail, key churn).
	// Production runs at info and above.
	Debug(msg string, fields ...Field)

	// Info records routine run milestones.
	Info(msg string, fields ...Field)

	// Warn records recoverable degradations: graph unavailable, snapshot
	// write failed, lock renewal lost.
	Warn(msg string, fields ...Field)

	// Error records failures of a single operation the run survives.
	Error(msg string, fields ...Field)

	// Fatal logs and then exits the process.  Startup wiring only.
	Fatal(msg string, fields ...Field)

	// With derives a child Logger carrying fields on every entry, typically
	// the run ID.  The receiver is unchanged.
	With(fields ...Field) Logger

	// Named derives a child Logger with name appended dot-separated, e.g.
	// "engine" → "engine.gather".
	Named(name string) Logger
}

// LogConfig carries the construction parameters for NewLogger.  The CLI maps
// the engine's config file section onto this.
type LogConfig struct {
	// Level is the minimum emitted severity: "debug", "info", "warn",
	// "error" (case-insensitive).  Unrecognized or empty means "info".
	Level string `yaml:"level" json:"level"`

	// Format is "json" for aggregation pipelines or "console" for local
	// development.  Anything else means "json".
	Format string `yaml:"format" json:"format"`

	// OutputPaths lists sinks for log entries; "stdout" and "stderr" are
	// recognized, everything else is a file path.  Nil means ["stdout"].
	OutputPaths []string `yaml:"output_paths" json:"output_paths"`

	// ErrorOutputPaths lists sinks for zap's own errors.  Nil means
	// ["stderr"].
	ErrorOutputPaths []string `yaml:"error_output_paths" json:"error_output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// zap adapter
// ─────────────────────────────────────────────────────────────────────────────

type zapLogger struct {
	z *zap.Logger
}

// toZapFields translates Field values onto zap's typed encoders, with
// zap.Any as the reflective fallback.
func toZapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			out = append(out, zap.String(f.Key, v))
		case int:
			out = append(out, zap.Int(f.Key, v))
		case int64:
			out = append(out, zap.Int64(f.Key, v))
		case float64:
			out = append(out, zap.Float64(f.Key, v))
		case bool:
			out = append(out, zap.Bool(f.Key, v))
		case time.Duration:
			out = append(out, zap.Duration(f.Key, v))
		case error:
			out = append(out, zap.NamedError(f.Key, v))
		default:
			out = append(out, zap.Any(f.Key, v))
		}
	}
	return out
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, toZapFields(fields)...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.z.Info(msg, toZapFields(fields)...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, toZapFields(fields)...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, toZapFields(fields)...) }
func (l *zapLogger) Fatal(msg string, fields ...Field) { l.z.Fatal(msg, toZapFields(fields)...) }

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(toZapFields(fields)...)}
}

func (l *zapLogger) Named(name string) Logger {
	return &zapLogger{z: l.z.Named(name)}
}

// parseLevel maps a config string to a zap level.  Unknown input falls back
// to info so a typo in config never silences or floods a run.
func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug", "DEBUG":
		return zapcore.DebugLevel
	case "warn", "WARN":
		return zapcore.WarnLevel
	case "error", "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewLogger builds the zap-backed Logger for cfg, defaulting unset fields
// (info, json, stdout, stderr).  The only error path is zap failing to open
// an output sink.
func NewLogger(cfg LogConfig) (Logger, error) {
	if len(cfg.OutputPaths) == 0 {
		cfg.OutputPaths = []string{"stdout"}
	}
	if len(cfg.ErrorOutputPaths) == 0 {
		cfg.ErrorOutputPaths = []string{"stderr"}
	}

	encoding := "json"
	encCfg := zap.NewProductionEncoderConfig()
	if cfg.Format == "console" {
		encoding = "console"
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(cfg.Level)),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encCfg,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: cfg.ErrorOutputPaths,
	}

	z, err := zapCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("logging: failed to build zap logger: %w", err)
	}
	return &zapLogger{z: z}, nil
}

// NewLoggerFromCore wraps an existing zapcore.Core, mainly for tests using
// zap's observer core.
func NewLoggerFromCore(core zapcore.Core) Logger {
	return &zapLogger{z: zap.New(core, zap.AddCallerSkip(1))}
}

// ─────────────────────────────────────────────────────────────────────────────
// Nop and process default
// ─────────────────────────────────────────────────────────────────────────────

type nopLogger struct{}

func (nopLogger) Debug(_ string, _ ...Field) {}
func (nopLogger) Info(_ string, _ ...Field)  {}
func (nopLogger) Warn(_ string, _ ...Field)  {}
func (nopLogger) Error(_ string, _ ...Field) {}
func (nopLogger) Fatal(_ string, _ ...Field) {}
func (n nopLogger) With(_ ...Field) Logger   { return n }
func (n nopLogger) Named(_ string) Logger    { return n }

// NewNopLogger returns a Logger that discards everything.  Constructors use
// it when handed a nil Logger.
func NewNopLogger() Logger { return nopLogger{} }

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = nopLogger{}
)

// SetDefault replaces the process-wide default Logger.  Called once by the
// CLI after config is loaded; safe concurrently.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// Default returns the process-wide default Logger.  Injection is preferred;
// Default exists for code with no constructor path.
func Default() Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	return l
}
