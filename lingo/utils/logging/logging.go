package logging

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Loggers are no-ops until InitLogger runs, so packages can log from tests.
var (
	AppLogger     = zap.NewNop()
	RequestLogger = zap.NewNop()
	TimerLogger   = zap.NewNop()
	ErrorLogger   = zap.NewNop()
)

type traceKey struct{}

const logsDir = "./logs"

func InitLogger() {
	if err := os.MkdirAll(logsDir, os.ModePerm); err != nil {
		panic("Failed to create logs directory: " + err.Error())
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	// app.log: lifecycle of connections and translation streams
	AppLogger = newRotating(encoder, "app.log", 100, 28, zap.InfoLevel)
	// request.log: inbound websocket events and http requests
	RequestLogger = newRotating(encoder, "request.log", 50, 7, zap.InfoLevel)
	TimerLogger = newRotating(encoder, "timer.log", 50, 7, zap.InfoLevel)
	ErrorLogger = newRotating(encoder, "error.log", 100, 30, zap.ErrorLevel)
}

func newRotating(encoder zapcore.Encoder, name string, maxSize, maxAge int, level zapcore.Level) *zap.Logger {
	core := zapcore.NewCore(encoder,
		zapcore.AddSync(&lumberjack.Logger{
			Filename: filepath.Join(logsDir, name), MaxSize: maxSize, MaxAge: maxAge, Compress: true,
		}),
		level,
	)
	return zap.New(core)
}

// WithTraceID tags ctx so LogDuration entries can be correlated.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// LogDuration lets you do: defer logging.LogDuration(ctx, "FuncName")()
func LogDuration(ctx context.Context, name string) func() {
	start := time.Now()
	traceID, _ := ctx.Value(traceKey{}).(string)

	return func() {
		fields := []zap.Field{
			zap.String("func", name),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}
		TimerLogger.Info("Function timed", fields...)
	}
}

func Sync() {
	for _, l := range []*zap.Logger{AppLogger, RequestLogger, TimerLogger, ErrorLogger} {
		_ = l.Sync()
	}
}
