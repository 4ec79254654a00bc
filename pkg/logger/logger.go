package logger

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RunIdKey is the context key carrying the backtest run id. Every log line
// emitted under a run's context is tagged with it so concurrent runs can be
// separated in the output.
const RunIdKey = "run_id"

// Global logger instance.
var Log *zap.Logger

// Init sets up the logging component.
// serviceName: name of the binary (for example "backtest")
// level: log level (debug, info, warn, error)
func Init(serviceName string, level string) {
	InitWithFile(serviceName, level, "")
}

// InitWithFile sets up logging with an explicit log file path. An empty path
// falls back to logs/{serviceName}.log. Output always goes to stdout as well.
func InitWithFile(serviceName string, level string, logFile string) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zap.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.MessageKey = "msg"

	writeSyncers := []zapcore.WriteSyncer{
		zapcore.AddSync(os.Stdout),
	}

	if logFile == "" {
		logFile = filepath.Join("logs", serviceName+".log")
	}

	// A failure to open the file degrades to stdout-only, it never aborts.
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0755); err == nil {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			writeSyncers = append(writeSyncers, zapcore.AddSync(file))
		}
	}

	multiWriter := zapcore.NewMultiWriteSyncer(writeSyncers...)

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		multiWriter,
		zapLevel,
	)

	// AddCallerSkip(1): callers go through the package-level wrappers below,
	// without the skip every line would point at logger.go.
	Log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	Log = Log.With(zap.String("service", serviceName))
}

// Context-aware wrappers. They pull the run id out of the context and append
// it as a field.

func Info(ctx context.Context, msg string, fields ...zap.Field) {
	extractRunID(ctx, &fields)
	Log.Info(msg, fields...)
}

func Error(ctx context.Context, msg string, fields ...zap.Field) {
	extractRunID(ctx, &fields)
	Log.Error(msg, fields...)
}

func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	extractRunID(ctx, &fields)
	Log.Warn(msg, fields...)
}

func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	extractRunID(ctx, &fields)
	Log.Debug(msg, fields...)
}

// Fatal logs and then calls os.Exit.
func Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	extractRunID(ctx, &fields)
	Log.Fatal(msg, fields...)
}

func extractRunID(ctx context.Context, fields *[]zap.Field) {
	if ctx == nil {
		return
	}
	if runID, ok := ctx.Value(RunIdKey).(string); ok && runID != "" {
		*fields = append(*fields, zap.String("run_id", runID))
	}
}

// Sync flushes buffered log entries. Call it deferred from main.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
