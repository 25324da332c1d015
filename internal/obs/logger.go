package obs

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogConfig struct {
	Level  string
	Pretty bool
	App    string
	Env    string
	Ver    string
}

func NewLogger(c LogConfig) (*zap.Logger, error) {
	var cfg zap.Config
	if c.Pretty {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	level := new(zapcore.Level)
	if err := level.Set(c.Level); err != nil {
		*level = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(*level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build(
		zap.Fields(
			zap.String("service", c.App),
			zap.String("env", c.Env),
			zap.String("version", c.Ver),
		),
	)
}

// WithTrace attaches the current trace and span ids to the logger when the
// context carries a sampled span.
func WithTrace(ctx context.Context, log *zap.Logger) *zap.Logger {
	if log == nil {
		return nil
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return log
	}
	return log.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
