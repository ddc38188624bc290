package log

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	sloglogrus "github.com/samber/slog-logrus/v2"
	"github.com/schoolvax/vax-app/conf"
	"github.com/schoolvax/vax-app/vax/constants"
	"github.com/sirupsen/logrus"
)

var (
	Worker logrus.FieldLogger
	Sync   logrus.FieldLogger
	Health logrus.FieldLogger
	Events logrus.FieldLogger
)

func init() {
	SetupLoggers()
}

// SetupLoggers (re)creates every package logger from the current configuration.
func SetupLoggers() {
	Worker = Logger(logrus.New(), conf.GetEnv("VAX_WORKER_LOG"),
		constants.WorkerApplication, conf.GetEnv("DEPLOYMENT_TARGET"))
	Sync = Logger(logrus.New(), conf.GetEnv("VAX_SYNC_LOG"),
		constants.SyncApplication, conf.GetEnv("DEPLOYMENT_TARGET"))
	Health = Logger(logrus.New(), conf.GetEnv("WORKER_HEALTH_LOG"),
		constants.WorkerApplication, conf.GetEnv("DEPLOYMENT_TARGET"))
	Events = Logger(logrus.New(), conf.GetEnv("VAX_EVENTS_LOG"),
		constants.WorkerApplication, conf.GetEnv("DEPLOYMENT_TARGET"))
}

func Logger(logger *logrus.Logger, outputFile string,
	application, environment string) logrus.FieldLogger {

	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	logger.SetReportCaller(true)

	if outputFile != "" {
		if file, err := os.OpenFile(filepath.Clean(outputFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640); err == nil {
			logger.SetOutput(file)
		} else {
			logger.Infof("Failed to open output file %s. Will use stderr. %s",
				outputFile, err.Error())
		}
	}

	return logger.WithFields(logrus.Fields{
		"application": application,
		"environment": environment,
		"source_app":  constants.SourceApp,
		"version":     constants.Version,
	})
}

// defaultFieldLogger is used when a context carries no logger.
func defaultFieldLogger(logType string) logrus.FieldLogger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	return logger.WithFields(logrus.Fields{
		"application": "default",
		"environment": conf.GetEnv("DEPLOYMENT_TARGET"),
		"log_type":    logType,
		"source_app":  constants.SourceApp,
		"version":     constants.Version,
	})
}

// NewSlogLogger adapts a package logger's settings for libraries that log through log/slog.
func NewSlogLogger(application string) *slog.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	return slogLoggerFromHandler(sloglogrus.Option{Level: slog.LevelInfo, Logger: logger}.NewLogrusHandler(), application)
}

func slogLoggerFromHandler(handler slog.Handler, application string) *slog.Logger {
	return slog.New(handler).With(
		"application", application,
		"environment", conf.GetEnv("DEPLOYMENT_TARGET"),
		"source_app", constants.SourceApp,
		"version", constants.Version,
	)
}

type contextKey string

// CtxLoggerKey is the context key under which a *StructuredLoggerEntry is stored.
const CtxLoggerKey contextKey = "ctxLogger"

// StructuredLoggerEntry carries a field logger through a context.
type StructuredLoggerEntry struct {
	Logger logrus.FieldLogger
}

// NewStructuredLoggerEntry stores logger in ctx so downstream calls share its fields.
func NewStructuredLoggerEntry(logger logrus.FieldLogger, ctx context.Context) context.Context {
	return context.WithValue(ctx, CtxLoggerKey, &StructuredLoggerEntry{Logger: logger})
}

// GetCtxLogger returns the logger stored in ctx, or a default logger.
func GetCtxLogger(ctx context.Context) logrus.FieldLogger {
	if entry, ok := ctx.Value(CtxLoggerKey).(*StructuredLoggerEntry); ok && entry.Logger != nil {
		return entry.Logger
	}
	return defaultFieldLogger("ctx")
}

// SetCtxLogger adds a single field to the context logger.
func SetCtxLogger(ctx context.Context, key string, value interface{}) (context.Context, logrus.FieldLogger) {
	return SetLoggerFields(ctx, logrus.Fields{key: value})
}

// SetLoggerFields adds fields to the context logger and returns both the new
// context and the new logger.
func SetLoggerFields(ctx context.Context, fields logrus.Fields) (context.Context, logrus.FieldLogger) {
	logger := GetCtxLogger(ctx).WithFields(fields)
	return NewStructuredLoggerEntry(logger, ctx), logger
}

func WriteErrorWithFields(ctx context.Context, msg string, fields logrus.Fields) (context.Context, logrus.FieldLogger) {
	ctx, logger := SetLoggerFields(ctx, fields)
	logger.Error(msg)
	return ctx, logger
}

func WriteWarnWithFields(ctx context.Context, msg string, fields logrus.Fields) (context.Context, logrus.FieldLogger) {
	ctx, logger := SetLoggerFields(ctx, fields)
	logger.Warn(msg)
	return ctx, logger
}

func WriteInfoWithFields(ctx context.Context, msg string, fields logrus.Fields) (context.Context, logrus.FieldLogger) {
	ctx, logger := SetLoggerFields(ctx, fields)
	logger.Info(msg)
	return ctx, logger
}
