// Package logging provides zap logger helpers.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger that tees every entry to the console (DEBUG and
// above) and, when logPath is non-empty, to an append-only log file (INFO
// and above). The file receives JSON lines; the console uses the
// development encoder.
func New(logPath string, development bool) (*zap.Logger, error) {
	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleCfg.TimeKey = "ts"
	if !development {
		consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleCfg),
		zapcore.Lock(os.Stdout),
		zapcore.DebugLevel,
	)

	if logPath == "" {
		return zap.New(consoleCore), nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o750); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", logPath, err)
	}

	fileCfg := zap.NewProductionEncoderConfig()
	fileCfg.TimeKey = "ts"
	fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(fileCfg),
		zapcore.Lock(file),
		zapcore.InfoLevel,
	)

	return zap.New(zapcore.NewTee(consoleCore, fileCore)), nil
}
