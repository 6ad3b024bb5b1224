package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"crosspost/internal/config"
	"crosspost/internal/discord"
	"crosspost/internal/logging"
	"crosspost/internal/queue"
	"crosspost/internal/services"
)

// Reconciler polls the store for status changes the worker has written but
// the source channel has not seen yet, and reflects them as reactions and
// log-embed edits. Delivery is at-least-once: the reacted flag flips only
// after every acknowledgment side effect succeeded, so a transient failure
// means the whole item is retried on the next tick.
type Reconciler struct {
	cfg    *config.Config
	store  *queue.Store
	chat   discord.Client
	logger *slog.Logger

	pollInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a status reconciler.
func New(cfg *config.Config, store *queue.Store, chat discord.Client, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNop()
	}
	interval := time.Duration(cfg.Workflow.ReconcileIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reconciler{
		cfg:          cfg,
		store:        store,
		chat:         chat,
		logger:       logging.NewComponentLogger(logger, "reconcile"),
		pollInterval: interval,
	}
}

// Start begins the background poll loop.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("reconciler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(runCtx)
	return nil
}

// Stop terminates the poll loop and waits for the current tick to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
}

func (r *Reconciler) run(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.pollInterval):
		}

		if err := r.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("reconcile tick failed", logging.Error(err))
		}
	}
}

// Tick runs one reconciliation pass. Per-item acknowledgment failures are
// logged and retried on later ticks; only store read failures surface as an
// error.
func (r *Reconciler) Tick(ctx context.Context) error {
	items, err := r.store.Unacknowledged(ctx)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "reconcile", "query unacknowledged", "", err)
	}

	for _, item := range items {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		r.acknowledge(ctx, item)
	}
	return nil
}

// acknowledge reflects one item's status to the source message and the log
// mirror. MarkReacted runs only after every side effect has been attempted
// and succeeded.
func (r *Reconciler) acknowledge(ctx context.Context, item *queue.Item) {
	log := r.logger.With(
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldStatus, string(item.Status)),
	)

	channelID := r.cfg.Discord.SubmitChannelID
	mark := discord.StatusMark(item.Status)

	// Clear stale marks first so the message never shows two states at once.
	if err := r.chat.ClearReactions(ctx, channelID, item.ID); err != nil {
		log.Warn("clear stale reactions", logging.Error(wrapAck("clear reactions", err)))
		return
	}
	if err := r.chat.AddReaction(ctx, channelID, item.ID, mark); err != nil {
		log.Warn("apply status reaction", logging.Error(wrapAck("add reaction", err)))
		return
	}

	if item.LogMessageID != "" {
		logMessageID, parseErr := strconv.ParseInt(item.LogMessageID, 10, 64)
		if parseErr != nil {
			log.Error("bad log message reference", logging.Error(parseErr))
			// Unrecoverable reference; fall through and acknowledge anyway so
			// the item does not retry forever against a corrupt id.
		} else if err := r.chat.EditEmbed(ctx, r.cfg.Discord.LogChannelID, logMessageID, discord.LogEmbed(item)); err != nil {
			log.Warn("edit log embed", logging.Error(wrapAck("edit embed", err)))
			return
		}
	}

	if err := r.store.MarkReacted(ctx, item.ID); err != nil {
		log.Error("persist acknowledgment", logging.Error(err))
		return
	}
	log.Debug("status acknowledged", logging.String("mark", mark))
}

func wrapAck(operation string, err error) error {
	return services.Wrap(services.ErrAcknowledgment, "reconcile", operation, "", err)
}
