package config

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide structured logger. It is a no-op until InitLogging runs.
var Logger = zap.NewNop()

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogging builds the zap logger writing to stdout and, when the log file can be
// opened, to the file as well. The returned file must be closed by the caller.
func InitLogging(cfg LogConfig) (*zap.Logger, *os.File) {
	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	var encCfg zapcore.EncoderConfig
	if strings.EqualFold(cfg.Environment, "production") {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "timestamp"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}

	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), level)
	cores := []zapcore.Core{consoleCore}

	var logFile *os.File
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), os.ModePerm); err == nil {
			f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err == nil {
				logFile = f
				fileEnc := zap.NewProductionEncoderConfig()
				fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder
				cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), zapcore.AddSync(f), level))
			}
		}
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.Fields(
		zap.String("service", "supplement-program-api"),
		zap.String("environment", cfg.Environment),
	))
	if logFile == nil && cfg.FilePath != "" {
		logger.Warn("log file unavailable, logging to stdout only", zap.String("path", cfg.FilePath))
	}

	Logger = logger
	zap.ReplaceGlobals(logger)
	return logger, logFile
}
