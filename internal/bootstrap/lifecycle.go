package bootstrap

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// App runs a blocking function and calls shutdown hooks on SIGINT/SIGTERM.
type App struct {
	mu    sync.Mutex
	hooks []func(ctx context.Context) error
}

func NewApp() *App {
	return &App{}
}

// AddShutdownHook registers fn; hooks run in reverse order.
func (a *App) AddShutdownHook(fn func(ctx context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, fn)
}

// Run blocks until run returns, ctx is cancelled or a signal arrives. The
// shutdown hooks run in every case, and their errors are joined with run's.
func (a *App) Run(ctx context.Context, run func(ctx context.Context) error) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
	}()

	select {
	case <-ctx.Done():
		return a.Shutdown(context.Background())
	case err := <-errCh:
		return errors.Join(err, a.Shutdown(context.Background()))
	}
}

// Shutdown runs the registered hooks once, newest first.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var errs []error
	for i := len(a.hooks) - 1; i >= 0; i-- {
		if err := a.hooks[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.hooks = nil
	return errors.Join(errs...)
}
