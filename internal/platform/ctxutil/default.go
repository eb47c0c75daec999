package ctxutil

import (
	"context"
	"time"
)

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// WithTimeout applies d unless it is non-positive, in which case ctx is only
// made cancelable.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	ctx = Default(ctx)
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Detached keeps trace values of parent but drops its cancellation, for work
// that must outlive the request that started it.
func Detached(parent context.Context) context.Context {
	return context.WithoutCancel(Default(parent))
}
