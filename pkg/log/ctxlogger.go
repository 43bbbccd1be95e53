package log

import (
	"context"

	"go.uber.org/zap"
)

type ctxMarkerLogger struct{}

var (
	ctxKeyLogger = &ctxMarkerLogger{}
	nullLogger   = zap.NewNop().Sugar()
)

// ctxLogger collects fields during a request so that a single line
// is written when the request completes.
type ctxLogger struct {
	logger *zap.SugaredLogger
	fields []interface{}
}

// AddFields adds zap fields to the request logger stored in ctx.
// It is a no-op for contexts without a logger, e.g. background jobs.
func AddFields(ctx context.Context, fields ...interface{}) {
	l, ok := ctx.Value(ctxKeyLogger).(*ctxLogger)
	if !ok || l == nil {
		return
	}
	l.fields = append(l.fields, fields...)
}

// ExtractLogger returns the request logger with all fields added so far.
func ExtractLogger(ctx context.Context) *zap.SugaredLogger {
	l, ok := ctx.Value(ctxKeyLogger).(*ctxLogger)
	if !ok || l == nil {
		return nullLogger
	}
	return l.logger.With(l.fields...)
}

// ToContext puts a request logger into ctx.
func ToContext(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, &ctxLogger{logger: logger})
}
