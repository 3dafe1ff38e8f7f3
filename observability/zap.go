package observability

import "go.uber.org/zap"

type zapLogger struct {
	logger *zap.Logger
}

// NewZapLogger adapts a zap logger to the Logger interface.
// A nil logger yields NoopLogger.
//
//nolint:ireturn // Factory function must return interface for dependency injection pattern
func NewZapLogger(logger *zap.Logger) Logger {
	if logger == nil {
		return NoopLogger()
	}

	return &zapLogger{logger: logger}
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.logger.Debug(msg, zapFields(fields)...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.logger.Info(msg, zapFields(fields)...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.logger.Warn(msg, zapFields(fields)...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.logger.Error(msg, zapFields(fields)...) }

//nolint:ireturn // Method must return interface to satisfy Logger interface
func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{logger: l.logger.With(zapFields(fields)...)}
}

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}

	return out
}
