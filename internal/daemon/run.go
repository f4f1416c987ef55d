package daemon

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pmxdev/pmx/internal/cache"
	"github.com/pmxdev/pmx/internal/config"
	"github.com/pmxdev/pmx/internal/logger"
)

// Run is the daemon's foreground entry point, invoked by the hidden
// 'daemon run-foreground' subcommand after Lifecycle.Start has detached
// the process. It owns the PID file and the log sink for its lifetime and
// refreshes the cache until SIGTERM or SIGINT arrives.
func Run(dir string) error {
	lc := NewLifecycle(dir)
	if err := lc.WritePIDFile(); err != nil {
		return err
	}
	defer lc.RemovePIDFile()

	log, err := logger.NewFileLogger(lc.LogFile())
	if err != nil {
		return err
	}
	defer log.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store := cache.New(config.CacheDir(dir))
	NewRefresher(dir, store, nil, log).Run(ctx)
	return nil
}
