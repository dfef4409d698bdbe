package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// Func releases one resource during shutdown.
type Func func(ctx context.Context) error

// Run calls every fn in order under a shared deadline and logs failures.
func Run(log *slog.Logger, timeout time.Duration, fns ...Func) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, fn := range fns {
		if err := fn(ctx); err != nil {
			log.Error("shutdown step failed", "err", err)
		}
	}
}
