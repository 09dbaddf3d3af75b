package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var zapLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// zapLogger adapts a zap sugared logger to the Logger interface so that
// zap types stay out of the rest of the codebase.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger builds the process-wide zap-backed logger. The returned
// flush function should be deferred by the caller.
func NewZapLogger(verbose bool) (Logger, func()) {
	if verbose {
		zapLevel.SetLevel(zapcore.DebugLevel)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		zapLevel,
	)

	logger := zap.New(core)
	flush := func() {
		_ = logger.Sync()
	}
	return &zapLogger{sugar: logger.Sugar()}, flush
}

// SetLevel adjusts the global log level, e.g. from a configuration file.
// Supported values are the standard zap level names.
func SetLevel(level string) error {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	zapLevel.SetLevel(parsed)
	return nil
}

func (z *zapLogger) Debugf(msg string, args ...interface{}) {
	z.sugar.Debugf(msg, args...)
}

func (z *zapLogger) Infof(msg string, args ...interface{}) {
	z.sugar.Infof(msg, args...)
}

func (z *zapLogger) Warnf(msg string, args ...interface{}) {
	z.sugar.Warnf(msg, args...)
}

func (z *zapLogger) Errorf(msg string, args ...interface{}) {
	z.sugar.Errorf(msg, args...)
}
