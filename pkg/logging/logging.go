package logging

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger takes a logging config and returns a new zap logger that writes to
// the log file pointed to by the config and, unless console output is
// disabled, to stdout as well.
func NewLogger(config *Config) (*zap.Logger, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}

	encoder, level, err := buildEncoderAndLevel(config)
	if err != nil {
		return nil, fmt.Errorf("constructing log encoder and level: %w", err)
	}

	logFile := zapcore.AddSync(&config.Logger)
	core := zapcore.NewCore(encoder, logFile, level)

	if !config.DisableConsoleOutput {
		console := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)
		core = zapcore.NewTee(core, console)
	}

	// Skip one frame so records carry the caller, not the wrapper.
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)), nil
}

// buildEncoderAndLevel picks the encoder from the config. Debug mode uses
// the console encoder so interactive runs stay readable; everything else
// gets JSON. Note the lumberjack logger writes to a temp file when no
// filename is configured, so file output exists even without one.
func buildEncoderAndLevel(config *Config) (zapcore.Encoder, zapcore.Level, error) {
	zapLevel, err := config.toZapCoreLevel()
	if err != nil {
		return nil, zapLevel, err
	}

	encoderConfig := zapEncoderConfig(config)
	if config.Debug {
		return zapcore.NewConsoleEncoder(encoderConfig), zapLevel, nil
	}

	return zapcore.NewJSONEncoder(encoderConfig), zapLevel, nil
}

func zapEncoderConfig(config *Config) zapcore.EncoderConfig {
	encoderConfig := zap.NewProductionEncoderConfig()
	if config.Debug {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	if config.EncodeTimeAsRFC3339Nano {
		encoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	}

	return encoderConfig
}

// NewTestLogger returns a logger suitable for tests that want visible output.
func NewTestLogger() Interface {
	return ForLogrus(logrus.NewEntry(logrus.New()))
}
