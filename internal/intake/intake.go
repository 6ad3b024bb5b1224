package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"crosspost/internal/config"
	"crosspost/internal/discord"
	"crosspost/internal/logging"
	"crosspost/internal/media"
	"crosspost/internal/queue"
	"crosspost/internal/services"
)

// Coordinator validates inbound submissions, persists their media and queue
// records, and reflects pending-state feedback to the source channel.
type Coordinator struct {
	cfg    *config.Config
	store  *queue.Store
	files  *media.Store
	chat   discord.Client
	logger *slog.Logger
}

// NewCoordinator builds the intake handler.
func NewCoordinator(cfg *config.Config, store *queue.Store, files *media.Store, chat discord.Client, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		cfg:    cfg,
		store:  store,
		files:  files,
		chat:   chat,
		logger: logging.NewComponentLogger(logger, "intake"),
	}
}

// HandleSubmission processes one message-created event. Invalid submissions
// are rejected by deleting the source message; nothing partial ever enters
// the queue.
func (c *Coordinator) HandleSubmission(ctx context.Context, event discord.SubmissionEvent) {
	if event.AuthorBot {
		return
	}
	if event.GuildID != c.cfg.Discord.GuildID || event.ChannelID != c.cfg.Discord.SubmitChannelID {
		return
	}
	if len(event.Attachments) == 0 {
		return
	}

	log := c.logger.With(logging.Int64(logging.FieldItemID, event.MessageID))

	attachments, err := c.validate(event)
	if err != nil {
		log.Info("rejecting submission", logging.Error(err))
		c.reject(ctx, event)
		return
	}

	paths, err := c.saveMedia(ctx, event)
	if err != nil {
		log.Error("save submission media", logging.Error(err))
		c.reject(ctx, event)
		return
	}

	item := &queue.Item{
		ID: event.MessageID,
		Author: queue.Author{
			ID:   event.AuthorID,
			Name: event.AuthorName,
		},
		Attachments: attachments,
		Caption:     event.Content,
		CreatedAt:   time.Now().UTC(),
	}

	stored, err := c.store.Add(ctx, item)
	if err != nil {
		if errors.Is(err, queue.ErrDuplicateItem) {
			log.Warn("duplicate submission delivery dropped")
			return
		}
		log.Error("enqueue submission", logging.Error(services.Wrap(services.ErrPersistence, "intake", "add item", "", err)))
		if err := c.files.RemoveItem(event.MessageID); err != nil {
			log.Warn("clean up media after failed enqueue", logging.Error(err))
		}
		// Degraded acknowledgment: the submitter sees the failure mark
		// instead of silence when the store write did not land.
		if err := c.chat.AddReaction(ctx, event.ChannelID, event.MessageID, discord.MarkFailed); err != nil {
			log.Warn("add failure reaction", logging.Error(err))
		}
		return
	}

	c.mirrorToLog(ctx, log, stored, paths)

	if err := c.chat.AddReaction(ctx, event.ChannelID, event.MessageID, discord.MarkPending); err != nil {
		log.Warn("add pending reaction", logging.Error(err))
	}

	c.refreshQueueCounter(ctx)
	log.Info("submission queued",
		logging.Int("attachments", len(stored.Attachments)),
		logging.String("author", stored.Author.Name))
}

// HandleDeletion reacts to upstream message removal. Published items keep
// their record and files as audit trail; everything else is cleaned up.
func (c *Coordinator) HandleDeletion(ctx context.Context, event discord.DeletionEvent) {
	if event.GuildID != c.cfg.Discord.GuildID || event.ChannelID != c.cfg.Discord.SubmitChannelID {
		return
	}

	log := c.logger.With(logging.Int64(logging.FieldItemID, event.MessageID))

	item, err := c.store.GetByID(ctx, event.MessageID)
	if err != nil {
		log.Error("look up deleted submission", logging.Error(err))
		return
	}
	if item == nil {
		return
	}
	if item.Status == queue.StatusSuccess {
		log.Debug("source deleted after publish, keeping record")
		return
	}

	if err := c.files.RemoveItem(item.ID); err != nil {
		log.Warn("remove media for deleted submission", logging.Error(err))
	}
	if _, err := c.store.Remove(ctx, item.ID); err != nil {
		log.Error("remove record for deleted submission", logging.Error(err))
		return
	}

	c.refreshQueueCounter(ctx)
	log.Info("submission withdrawn")
}

// validate applies the count cap and the MIME allow-list. Acceptance is
// all-or-nothing: one bad attachment rejects the whole submission.
func (c *Coordinator) validate(event discord.SubmissionEvent) ([]queue.Attachment, error) {
	if limit := c.cfg.Media.MaxAttachments; limit > 0 && len(event.Attachments) > limit {
		return nil, services.Wrap(services.ErrValidation, "intake", "validate",
			fmt.Sprintf("%d attachments exceeds cap of %d", len(event.Attachments), limit), nil)
	}

	attachments := make([]queue.Attachment, 0, len(event.Attachments))
	for _, att := range event.Attachments {
		kind, ok := media.KindForContentType(att.ContentType)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "intake", "validate",
				fmt.Sprintf("unsupported content type %q for %s", att.ContentType, att.Filename), nil)
		}
		attachments = append(attachments, queue.Attachment{
			ID:       att.ID,
			Filename: att.Filename,
			Ext:      filepath.Ext(att.Filename),
			Kind:     kind,
		})
	}
	return attachments, nil
}

func (c *Coordinator) saveMedia(ctx context.Context, event discord.SubmissionEvent) ([]string, error) {
	paths := make([]string, 0, len(event.Attachments))
	for seq, att := range event.Attachments {
		body, err := c.chat.DownloadAttachment(ctx, att.URL)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", att.Filename, err)
		}
		path, saveErr := c.files.Save(event.MessageID, seq, att.ID, filepath.Ext(att.Filename), body)
		body.Close()
		if saveErr != nil {
			return nil, fmt.Errorf("save %s: %w", att.Filename, saveErr)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// reject deletes the source message, which is the rejection signal shown to
// the submitter.
func (c *Coordinator) reject(ctx context.Context, event discord.SubmissionEvent) {
	if err := c.chat.DeleteMessage(ctx, event.ChannelID, event.MessageID); err != nil {
		c.logger.Warn("delete rejected submission",
			logging.Int64(logging.FieldItemID, event.MessageID),
			logging.Error(err))
	}
}

// mirrorToLog posts the audit embed with the submitted files attached and
// remembers the message id for in-place status edits. If the reference cannot
// be persisted, the item is halted so the reconciler never edits a message it
// cannot find again.
func (c *Coordinator) mirrorToLog(ctx context.Context, log *slog.Logger, item *queue.Item, paths []string) {
	if c.cfg.Discord.LogChannelID == 0 {
		return
	}

	messageID, err := c.chat.SendEmbed(ctx, c.cfg.Discord.LogChannelID, discord.LogEmbed(item), paths...)
	if err != nil {
		log.Warn("mirror submission to log channel", logging.Error(err))
		return
	}
	if err := c.store.SetLogMessage(ctx, item.ID, fmt.Sprintf("%d", messageID)); err != nil {
		log.Error("persist log message reference", logging.Error(err))
		if stopErr := c.store.StopItem(ctx, item.ID); stopErr != nil {
			log.Error("halt item after reference failure", logging.Error(stopErr))
		}
	}
}

// refreshQueueCounter renames the queue channel to show the pending count.
func (c *Coordinator) refreshQueueCounter(ctx context.Context) {
	if c.cfg.Discord.QueueChannelID == 0 {
		return
	}
	pending, err := c.store.CountPending(ctx)
	if err != nil {
		c.logger.Warn("count pending for channel rename", logging.Error(err))
		return
	}
	name := fmt.Sprintf("queue-%d", pending)
	if err := c.chat.RenameChannel(ctx, c.cfg.Discord.QueueChannelID, name); err != nil {
		c.logger.Warn("rename queue channel", logging.Error(err))
	}
}
