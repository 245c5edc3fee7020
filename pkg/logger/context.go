package logger

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

var discard = zerolog.Nop()

func (l *Logger) entry(ctx context.Context) *zerolog.Logger {
	if l == nil {
		return &discard
	}
	if ctx != nil {
		if bound, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
			return bound
		}
	}
	return l.base
}

func (l *Logger) bind(ctx context.Context, zctx zerolog.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	bound := zctx.Logger()
	return context.WithValue(ctx, ctxKey{}, &bound)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.bind(ctx, l.entry(ctx).With().Interface(key, value))
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	return l.bind(ctx, l.entry(ctx).With().Fields(fields))
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

// WithCaller binds the identity attributed to the current operation.
func (l *Logger) WithCaller(ctx context.Context, caller string) context.Context {
	return l.WithField(ctx, "caller", caller)
}

func (l *Logger) WithAssetID(ctx context.Context, assetID uint64) context.Context {
	return l.WithField(ctx, "asset_id", assetID)
}
