package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"crosspost/internal/config"
	"crosspost/internal/logging"
	"crosspost/internal/media"
	"crosspost/internal/publisher"
	"crosspost/internal/queue"
	"crosspost/internal/services"
)

// Worker is the single-flight upload consumer. Each tick dequeues at most
// one pending item and drives it through processing, uploading, and a
// terminal state. The ticks themselves are serialized by the loop, so no two
// items are ever in flight at once.
type Worker struct {
	cfg       *config.Config
	store     *queue.Store
	files     *media.Store
	converter media.Converter
	pub       publisher.Service
	logger    *slog.Logger

	pollInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds an upload worker.
func New(cfg *config.Config, store *queue.Store, files *media.Store, converter media.Converter, pub publisher.Service, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	interval := time.Duration(cfg.Workflow.UploadIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	return &Worker{
		cfg:          cfg,
		store:        store,
		files:        files,
		converter:    converter,
		pub:          pub,
		logger:       logging.NewComponentLogger(logger, "worker"),
		pollInterval: interval,
	}
}

// Start begins background processing.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("worker already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	w.mu.Unlock()

	go w.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for the in-flight item to
// finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// One item per tick. The interval spaces publishes to the external
		// platform, so a processed item waits just like an empty queue.
		if _, err := w.ProcessOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("worker tick failed", logging.Error(err))
		}
		w.waitForItemOrShutdown(ctx)
	}
}

func (w *Worker) waitForItemOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.pollInterval):
	}
}

// ProcessOnce runs a single worker tick: dequeue at most one pending item and
// drive it to a terminal state. It reports whether an item was handled.
// Failures inside conversion or publish are converted to queue state and never
// escape as an error; the returned error covers store access only.
func (w *Worker) ProcessOnce(ctx context.Context) (bool, error) {
	item, err := w.store.NextPending(ctx)
	if err != nil {
		return false, services.Wrap(services.ErrPersistence, "worker", "next pending", "", err)
	}
	if item == nil {
		return false, nil
	}

	requestID := uuid.NewString()
	ctx = services.WithItemID(ctx, item.ID)
	ctx = services.WithRequestID(ctx, requestID)
	log := w.logger.With(
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldRequestID, requestID),
	)

	if err := w.store.UpdateStatus(ctx, item.ID, queue.StatusProcessing); err != nil {
		return false, services.Wrap(services.ErrPersistence, "worker", "claim item", "", err)
	}
	log.Info("processing submission", logging.Int("attachments", len(item.Attachments)))

	converted, convErr := w.convertAll(ctx, item)
	if convErr != nil {
		w.fail(ctx, log, item, convErr)
		return true, nil
	}

	if err := w.store.UpdateStatus(ctx, item.ID, queue.StatusUploading); err != nil {
		return true, services.Wrap(services.ErrPersistence, "worker", "mark uploading", "", err)
	}

	caption := item.Caption
	if caption == "" {
		caption = w.cfg.Publisher.Caption
	}
	if err := publisher.UploadItem(ctx, w.pub, item, converted, caption); err != nil {
		w.fail(ctx, log, item, err)
		return true, nil
	}

	if err := w.store.UpdateStatus(ctx, item.ID, queue.StatusSuccess); err != nil {
		return true, services.Wrap(services.ErrPersistence, "worker", "mark success", "", err)
	}
	if err := w.files.RemoveItem(item.ID); err != nil {
		log.Warn("remove media after publish", logging.Error(err))
	}
	log.Info("submission published", logging.String(logging.FieldStatus, string(queue.StatusSuccess)))
	return true, nil
}

// convertAll converts every attachment in submission order. The first failure
// aborts the whole item; there is no partial publish.
func (w *Worker) convertAll(ctx context.Context, item *queue.Item) ([]string, error) {
	converted := make([]string, 0, len(item.Attachments))
	for seq, att := range item.Attachments {
		src := w.files.AttachmentPath(item.ID, seq, att.ID, att.Ext)
		dst, err := w.converter.Convert(ctx, src, att.Kind)
		if err != nil {
			return nil, err
		}
		converted = append(converted, dst)
	}
	return converted, nil
}

// fail routes an item to the failed terminal state. Media files are kept for
// inspection; the stop flag prevents any further automatic attempt.
func (w *Worker) fail(ctx context.Context, log *slog.Logger, item *queue.Item, cause error) {
	log.Error("submission failed", logging.Error(cause))
	if err := w.store.MarkFailed(ctx, item.ID, cause.Error()); err != nil {
		log.Error("persist failed state", logging.Error(err))
	}
}
