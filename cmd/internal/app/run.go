package app

import (
	"context"
	"os/signal"
	"syscall"
)

// Run builds the server and blocks until ctx ends, SIGINT or SIGTERM.
// It returns an error instead of calling os.Exit to keep defers effective.
func Run(ctx context.Context, cfg Config, log Logger) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
