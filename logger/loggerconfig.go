// loggerconfig.go
package logger

import (
	"fmt"

	"github.com/deploymenttheory/go-api-authorizer-token/version"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LogOutputJSON          = "json"
	LogOutputHumanReadable = "pretty"
)

// BuildLogger creates and returns a new zap backed Logger.
// JSON is the default encoding; "pretty" switches to the coloured console encoder.
// The 'application' and 'version' fields are attached to every entry and kept at the end by customCore.
// The function panics if the logger cannot be initialized.
func BuildLogger(logLevel LogLevel, logOutputFormat string) Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	config := zap.Config{
		Level:             zap.NewAtomicLevelAt(convertToZapLevel(logLevel)),
		Development:       false,
		Encoding:          "json",
		DisableCaller:     true,
		DisableStacktrace: true,
		Sampling:          nil,
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}

	if logOutputFormat == LogOutputHumanReadable {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapLogger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	wrapped := zap.New(&customCore{zapLogger.Core()}).With(
		zap.String("application", version.GetAppName()),
		zap.String("version", version.GetVersion()),
	)

	return &defaultLogger{
		logger:   wrapped,
		logLevel: logLevel,
	}
}

// NewLoggerFromZap wraps an existing zap logger, e.g. one built by zaptest/observer in tests.
func NewLoggerFromZap(zapLogger *zap.Logger, logLevel LogLevel) Logger {
	return &defaultLogger{
		logger:   zap.New(&customCore{zapLogger.Core()}),
		logLevel: logLevel,
	}
}

// convertToZapLevel converts the custom LogLevel to a zapcore.Level
func convertToZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LogLevelDebug:
		return zap.DebugLevel
	case LogLevelInfo:
		return zap.InfoLevel
	case LogLevelWarn:
		return zap.WarnLevel
	case LogLevelError:
		return zap.ErrorLevel
	case LogLevelDPanic:
		return zap.DPanicLevel
	case LogLevelPanic:
		return zap.PanicLevel
	case LogLevelFatal:
		return zap.FatalLevel
	default:
		return zap.InfoLevel
	}
}
