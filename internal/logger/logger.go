package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Process-wide logger, built once by Init and handed to each component
	log *zap.SugaredLogger
	// file backs the JSON core; the console sink is not synced since stdout may be a pipe
	file *os.File
)

// Init builds the process-wide logger. Console output is always enabled; when toFile is
// set, JSON lines are also appended to filePath.
func Init(level string, toFile bool, filePath string) (*zap.SugaredLogger, error) {
	var cores []zapcore.Core

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}

	consoleConfig := encoderConfig
	if isatty.IsTerminal(os.Stdout.Fd()) {
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleConfig),
		zapcore.AddSync(os.Stdout),
		zapLevel,
	))

	if file != nil {
		_ = file.Close()
		file = nil
	}

	if toFile {
		logDir := filepath.Dir(filePath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f

		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(file),
			zapLevel,
		))
	}

	log = zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar()
	return log, nil
}

// Get returns the process-wide logger, falling back to a production logger before Init
func Get() *zap.SugaredLogger {
	if log == nil {
		defaultLogger, _ := zap.NewProduction()
		log = defaultLogger.Sugar()
	}
	return log
}

// Component returns a child logger tagged with the component name
func Component(name string) *zap.SugaredLogger {
	return Get().Named(name)
}

// OrNop returns l, or a no-op logger when l is nil
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}

// Sync flushes the log file to disk
func Sync() error {
	if file == nil {
		return nil
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	return nil
}
