package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"crosspost/internal/config"
	"crosspost/internal/discord"
	"crosspost/internal/intake"
	"crosspost/internal/logging"
	"crosspost/internal/media"
	"crosspost/internal/publisher"
	"crosspost/internal/queue"
	"crosspost/internal/reconcile"
	"crosspost/internal/worker"
)

// Daemon wires the gateway listener, the upload worker, and the status
// reconciler around one shared queue store, and enforces single-instance
// execution through a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store

	gateway     *discord.Gateway
	coordinator *intake.Coordinator
	worker      *worker.Worker
	reconciler  *reconcile.Reconciler

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	files, err := media.NewStore(cfg.Paths.MediaDir)
	if err != nil {
		return nil, fmt.Errorf("init media store: %w", err)
	}

	converter := media.NewFFmpegConverter(cfg.Media.FFmpegBinary, cfg.Media.JPEGQuality)
	if err := converter.CheckBinary(); err != nil {
		return nil, err
	}

	chat := discord.NewClient(cfg)
	pub := publisher.NewService(cfg)

	lockPath := filepath.Join(cfg.Paths.DataDir, "crosspost.lock")
	return &Daemon{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		gateway:     discord.NewGateway(cfg, logger),
		coordinator: intake.NewCoordinator(cfg, store, files, chat, logger),
		worker:      worker.New(cfg, store, files, converter, pub, logger),
		reconciler:  reconcile.New(cfg, store, chat, logger),
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches all three loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another crosspost daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.worker.Start(runCtx); err != nil {
		d.releaseLock()
		cancel()
		return fmt.Errorf("start worker: %w", err)
	}
	if err := d.reconciler.Start(runCtx); err != nil {
		d.worker.Stop()
		d.releaseLock()
		cancel()
		return fmt.Errorf("start reconciler: %w", err)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.gateway.Run(runCtx, d.coordinator); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("gateway loop exited", logging.Error(err))
		}
	}()

	d.running.Store(true)
	d.logger.Info("crosspost daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down all loops and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.worker.Stop()
	d.reconciler.Stop()
	d.releaseLock()
	d.running.Store(false)
	d.logger.Info("crosspost daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon loops are active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LockPath returns the instance lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
}
