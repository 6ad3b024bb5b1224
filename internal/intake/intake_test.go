package intake_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"crosspost/internal/config"
	"crosspost/internal/discord"
	"crosspost/internal/intake"
	"crosspost/internal/media"
	"crosspost/internal/queue"
	"crosspost/internal/testsupport"
)

type fakeChat struct {
	reactions   []string
	deleted     []int64
	embeds      []discord.Embed
	embedFiles  [][]string
	renames     []string
	nextEmbedID int64
}

func (f *fakeChat) AddReaction(_ context.Context, _, _ int64, emoji string) error {
	f.reactions = append(f.reactions, emoji)
	return nil
}

func (f *fakeChat) ClearReactions(context.Context, int64, int64) error { return nil }

func (f *fakeChat) DeleteMessage(_ context.Context, _, messageID int64) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeChat) SendEmbed(_ context.Context, _ int64, embed discord.Embed, files ...string) (int64, error) {
	f.embeds = append(f.embeds, embed)
	f.embedFiles = append(f.embedFiles, files)
	f.nextEmbedID++
	return 9000 + f.nextEmbedID, nil
}

func (f *fakeChat) EditEmbed(context.Context, int64, int64, discord.Embed) error { return nil }

func (f *fakeChat) RenameChannel(_ context.Context, _ int64, name string) error {
	f.renames = append(f.renames, name)
	return nil
}

func (f *fakeChat) DownloadAttachment(_ context.Context, url string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("bytes-for-" + url)), nil
}

func newCoordinator(t *testing.T) (*intake.Coordinator, *queue.Store, *media.Store, *fakeChat, *config.Config) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	files, err := media.NewStore(cfg.Paths.MediaDir)
	if err != nil {
		t.Fatalf("media.NewStore failed: %v", err)
	}
	chat := &fakeChat{}
	coord := intake.NewCoordinator(cfg, store, files, chat, nil)
	return coord, store, files, chat, cfg
}

func photoEvent(cfg *config.Config, messageID int64) discord.SubmissionEvent {
	return discord.SubmissionEvent{
		MessageID:  messageID,
		ChannelID:  cfg.Discord.SubmitChannelID,
		GuildID:    cfg.Discord.GuildID,
		AuthorID:   "77",
		AuthorName: "alice",
		Content:    "look at this",
		Attachments: []discord.EventAttachment{
			{ID: "a1", Filename: "pic.png", ContentType: "image/png", URL: "cdn/pic.png"},
		},
	}
}

func TestHandleSubmissionQueuesValidPhoto(t *testing.T) {
	coord, store, files, chat, cfg := newCoordinator(t)
	ctx := context.Background()

	coord.HandleSubmission(ctx, photoEvent(cfg, 5001))

	item, err := store.GetByID(ctx, 5001)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item == nil {
		t.Fatal("expected queued record")
	}
	if item.Status != queue.StatusPending || item.Stop {
		t.Fatalf("unexpected record state: %#v", item)
	}
	if item.Caption != "look at this" || item.Author.Name != "alice" {
		t.Fatalf("unexpected record fields: %#v", item)
	}
	if item.LogMessageID == "" {
		t.Fatal("expected log message reference recorded")
	}

	saved := files.AttachmentPath(5001, 0, "a1", ".png")
	if _, err := os.Stat(saved); err != nil {
		t.Fatalf("expected media saved at %s: %v", saved, err)
	}

	if len(chat.reactions) != 1 || chat.reactions[0] != discord.MarkPending {
		t.Fatalf("expected pending reaction, got %v", chat.reactions)
	}
	if len(chat.embeds) != 1 {
		t.Fatalf("expected one log embed, got %d", len(chat.embeds))
	}
	if len(chat.embedFiles) != 1 || len(chat.embedFiles[0]) != 1 || chat.embedFiles[0][0] != saved {
		t.Fatalf("expected log embed to attach %s, got %v", saved, chat.embedFiles)
	}
	if len(chat.renames) != 1 || chat.renames[0] != "queue-1" {
		t.Fatalf("expected queue counter rename, got %v", chat.renames)
	}
}

func TestHandleSubmissionRejectsDisallowedType(t *testing.T) {
	coord, store, _, chat, cfg := newCoordinator(t)
	ctx := context.Background()

	event := photoEvent(cfg, 5002)
	event.Attachments[0].ContentType = "image/gif"
	coord.HandleSubmission(ctx, event)

	item, err := store.GetByID(ctx, 5002)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item != nil {
		t.Fatalf("expected no record for rejected submission, got %#v", item)
	}
	if len(chat.deleted) != 1 || chat.deleted[0] != 5002 {
		t.Fatalf("expected source message deleted, got %v", chat.deleted)
	}
}

func TestHandleSubmissionRejectsMixedValidity(t *testing.T) {
	coord, store, _, chat, cfg := newCoordinator(t)
	ctx := context.Background()

	event := photoEvent(cfg, 5003)
	event.Attachments = append(event.Attachments, discord.EventAttachment{
		ID: "a2", Filename: "doc.pdf", ContentType: "application/pdf", URL: "cdn/doc.pdf",
	})
	coord.HandleSubmission(ctx, event)

	item, _ := store.GetByID(ctx, 5003)
	if item != nil {
		t.Fatal("one bad attachment must reject the whole submission")
	}
	if len(chat.deleted) != 1 {
		t.Fatalf("expected source message deleted, got %v", chat.deleted)
	}
}

func TestHandleSubmissionEnforcesAttachmentCap(t *testing.T) {
	coord, store, _, chat, cfg := newCoordinator(t)
	ctx := context.Background()

	event := photoEvent(cfg, 5004)
	event.Attachments = nil
	for i := 0; i < cfg.Media.MaxAttachments+1; i++ {
		event.Attachments = append(event.Attachments, discord.EventAttachment{
			ID:          fmt.Sprintf("a%d", i),
			Filename:    fmt.Sprintf("pic%d.jpg", i),
			ContentType: "image/jpeg",
			URL:         fmt.Sprintf("cdn/pic%d.jpg", i),
		})
	}
	coord.HandleSubmission(ctx, event)

	item, _ := store.GetByID(ctx, 5004)
	if item != nil {
		t.Fatal("expected cap violation to reject submission")
	}
	if len(chat.deleted) != 1 {
		t.Fatalf("expected source message deleted, got %v", chat.deleted)
	}
}

func TestHandleSubmissionIgnoresBotAndForeignChannels(t *testing.T) {
	coord, store, _, chat, cfg := newCoordinator(t)
	ctx := context.Background()

	bot := photoEvent(cfg, 5005)
	bot.AuthorBot = true
	coord.HandleSubmission(ctx, bot)

	foreign := photoEvent(cfg, 5006)
	foreign.ChannelID = cfg.Discord.SubmitChannelID + 1
	coord.HandleSubmission(ctx, foreign)

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no records, got %d", count)
	}
	if len(chat.deleted) != 0 {
		t.Fatalf("ignored events must not delete messages, got %v", chat.deleted)
	}
}

func TestHandleDeletionRemovesUnpublishedItem(t *testing.T) {
	coord, store, files, _, cfg := newCoordinator(t)
	ctx := context.Background()

	coord.HandleSubmission(ctx, photoEvent(cfg, 5007))

	coord.HandleDeletion(ctx, discord.DeletionEvent{
		MessageID: 5007,
		ChannelID: cfg.Discord.SubmitChannelID,
		GuildID:   cfg.Discord.GuildID,
	})

	item, _ := store.GetByID(ctx, 5007)
	if item != nil {
		t.Fatal("expected record removed on upstream deletion")
	}
	if _, err := os.Stat(files.ItemDir(5007)); !os.IsNotExist(err) {
		t.Fatalf("expected media dir removed, stat err: %v", err)
	}
}

func TestHandleDeletionKeepsPublishedItem(t *testing.T) {
	coord, store, files, _, cfg := newCoordinator(t)
	ctx := context.Background()

	coord.HandleSubmission(ctx, photoEvent(cfg, 5008))
	if err := store.UpdateStatus(ctx, 5008, queue.StatusSuccess); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	coord.HandleDeletion(ctx, discord.DeletionEvent{
		MessageID: 5008,
		ChannelID: cfg.Discord.SubmitChannelID,
		GuildID:   cfg.Discord.GuildID,
	})

	item, err := store.GetByID(ctx, 5008)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item == nil {
		t.Fatal("published record must survive upstream deletion")
	}
	if _, err := os.Stat(files.ItemDir(5008)); err != nil {
		t.Fatalf("published media must survive upstream deletion: %v", err)
	}
}

func TestHandleSubmissionDropsDuplicateDelivery(t *testing.T) {
	coord, store, _, chat, cfg := newCoordinator(t)
	ctx := context.Background()

	coord.HandleSubmission(ctx, photoEvent(cfg, 5009))
	coord.HandleSubmission(ctx, photoEvent(cfg, 5009))

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single record after duplicate delivery, got %d", count)
	}
	if len(chat.deleted) != 0 {
		t.Fatalf("duplicates must be dropped silently, got deletions %v", chat.deleted)
	}
}
