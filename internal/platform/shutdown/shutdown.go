package shutdown

import (
	"context"
	"os/signal"
	"syscall"
	"time"
)

// NotifyContext is canceled on SIGINT or SIGTERM.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// Grace returns the context used to drain servers and workers after a stop
// signal.
func Grace(d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 20 * time.Second
	}
	return context.WithTimeout(context.Background(), d)
}
