package worker_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"crosspost/internal/media"
	"crosspost/internal/queue"
	"crosspost/internal/services"
	"crosspost/internal/testsupport"
	"crosspost/internal/worker"
)

type fakeConverter struct {
	failOn    string
	converted []string
}

func (f *fakeConverter) Convert(_ context.Context, path string, _ queue.MediaKind) (string, error) {
	if f.failOn != "" && strings.Contains(path, f.failOn) {
		return "", services.Wrap(services.ErrConversion, "media", "convert", "simulated failure", nil)
	}
	dst := path + "_converted"
	f.converted = append(f.converted, dst)
	return dst, nil
}

type fakePublisher struct {
	fail  bool
	calls []string
}

func (f *fakePublisher) UploadPhoto(_ context.Context, path, caption string) error {
	return f.record("photo", caption)
}

func (f *fakePublisher) UploadVideo(_ context.Context, path, caption string) error {
	return f.record("video", caption)
}

func (f *fakePublisher) UploadAlbum(_ context.Context, paths []string, caption string) error {
	return f.record("album", caption)
}

func (f *fakePublisher) record(call, caption string) error {
	f.calls = append(f.calls, call+":"+caption)
	if f.fail {
		return services.Wrap(services.ErrPublish, "publisher", "upload", "simulated failure", nil)
	}
	return nil
}

func newWorker(t *testing.T, conv *fakeConverter, pub *fakePublisher) (*worker.Worker, *queue.Store, *media.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	files, err := media.NewStore(cfg.Paths.MediaDir)
	if err != nil {
		t.Fatalf("media.NewStore failed: %v", err)
	}
	w := worker.New(cfg, store, files, conv, pub, nil)
	return w, store, files
}

func seedItem(t *testing.T, store *queue.Store, files *media.Store, id int64, attachments []queue.Attachment) {
	t.Helper()

	for seq, att := range attachments {
		testsupport.WriteFile(t, files.AttachmentPath(id, seq, att.ID, att.Ext), 32)
	}
	if _, err := store.Add(context.Background(), &queue.Item{
		ID:          id,
		Author:      queue.Author{ID: "1", Name: "alice"},
		Attachments: attachments,
		Caption:     "hello",
	}); err != nil {
		t.Fatalf("store.Add failed: %v", err)
	}
}

func TestProcessOncePublishesSinglePhoto(t *testing.T) {
	conv := &fakeConverter{}
	pub := &fakePublisher{}
	w, store, files := newWorker(t, conv, pub)
	ctx := context.Background()

	seedItem(t, store, files, 100, []queue.Attachment{
		{ID: "a1", Filename: "pic.jpg", Ext: ".jpg", Kind: queue.KindPhoto},
	})

	processed, err := w.ProcessOnce(ctx)
	if err != nil {
		t.Fatalf("ProcessOnce failed: %v", err)
	}
	if !processed {
		t.Fatal("expected an item to be processed")
	}

	item, err := store.GetByID(ctx, 100)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item.Status != queue.StatusSuccess {
		t.Fatalf("expected success, got %s", item.Status)
	}
	if len(pub.calls) != 1 || pub.calls[0] != "photo:hello" {
		t.Fatalf("unexpected publish calls: %v", pub.calls)
	}
	if _, err := os.Stat(files.ItemDir(100)); !os.IsNotExist(err) {
		t.Fatalf("expected media dir removed after success, stat err: %v", err)
	}
}

func TestProcessOncePublishesAlbumForMultiple(t *testing.T) {
	conv := &fakeConverter{}
	pub := &fakePublisher{}
	w, store, files := newWorker(t, conv, pub)
	ctx := context.Background()

	seedItem(t, store, files, 101, []queue.Attachment{
		{ID: "a1", Filename: "one.jpg", Ext: ".jpg", Kind: queue.KindPhoto},
		{ID: "a2", Filename: "two.jpg", Ext: ".jpg", Kind: queue.KindPhoto},
	})

	if _, err := w.ProcessOnce(ctx); err != nil {
		t.Fatalf("ProcessOnce failed: %v", err)
	}
	if len(pub.calls) != 1 || pub.calls[0] != "album:hello" {
		t.Fatalf("expected album call, got %v", pub.calls)
	}
	if len(conv.converted) != 2 {
		t.Fatalf("expected both attachments converted, got %v", conv.converted)
	}
}

func TestProcessOnceConversionFailureKeepsFiles(t *testing.T) {
	conv := &fakeConverter{failOn: "a2"}
	pub := &fakePublisher{}
	w, store, files := newWorker(t, conv, pub)
	ctx := context.Background()

	seedItem(t, store, files, 102, []queue.Attachment{
		{ID: "a1", Filename: "one.jpg", Ext: ".jpg", Kind: queue.KindPhoto},
		{ID: "a2", Filename: "two.jpg", Ext: ".jpg", Kind: queue.KindPhoto},
	})

	processed, err := w.ProcessOnce(ctx)
	if err != nil {
		t.Fatalf("ProcessOnce failed: %v", err)
	}
	if !processed {
		t.Fatal("expected the failing item to count as processed")
	}

	item, err := store.GetByID(ctx, 102)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item.Status != queue.StatusFailed || !item.Stop {
		t.Fatalf("expected failed+stop, got %#v", item)
	}
	if len(item.Errors) != 1 {
		t.Fatalf("expected exactly one error entry, got %v", item.Errors)
	}
	if len(pub.calls) != 0 {
		t.Fatalf("conversion failure must abort before publish, got %v", pub.calls)
	}
	if _, err := os.Stat(files.ItemDir(102)); err != nil {
		t.Fatalf("expected media kept after failure: %v", err)
	}

	// The failed item is stopped; the next tick finds nothing.
	processed, err = w.ProcessOnce(ctx)
	if err != nil {
		t.Fatalf("second ProcessOnce failed: %v", err)
	}
	if processed {
		t.Fatal("failed item must not be picked up again")
	}
}

func TestProcessOncePublishFailure(t *testing.T) {
	conv := &fakeConverter{}
	pub := &fakePublisher{fail: true}
	w, store, files := newWorker(t, conv, pub)
	ctx := context.Background()

	seedItem(t, store, files, 103, []queue.Attachment{
		{ID: "a1", Filename: "clip.mp4", Ext: ".mp4", Kind: queue.KindVideo},
	})

	if _, err := w.ProcessOnce(ctx); err != nil {
		t.Fatalf("ProcessOnce failed: %v", err)
	}

	item, err := store.GetByID(ctx, 103)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item.Status != queue.StatusFailed || !item.Stop {
		t.Fatalf("expected failed+stop after publish error, got %#v", item)
	}
	if _, err := os.Stat(files.ItemDir(103)); err != nil {
		t.Fatalf("expected media kept after publish failure: %v", err)
	}
}

func TestProcessOnceEmptyQueue(t *testing.T) {
	w, _, _ := newWorker(t, &fakeConverter{}, &fakePublisher{})

	processed, err := w.ProcessOnce(context.Background())
	if err != nil {
		t.Fatalf("ProcessOnce failed: %v", err)
	}
	if processed {
		t.Fatal("expected no-op on empty queue")
	}
}

func TestRunSpacesPublishesByInterval(t *testing.T) {
	conv := &fakeConverter{}
	pub := &fakePublisher{}
	w, store, files := newWorker(t, conv, pub)
	ctx := context.Background()

	photo := []queue.Attachment{{ID: "a1", Ext: ".jpg", Kind: queue.KindPhoto}}
	seedItem(t, store, files, 900, photo)
	seedItem(t, store, files, 901, photo)

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The default test interval is 60 minutes, so only the first tick can
	// have fired. The second item must still be waiting for its own tick.
	time.Sleep(300 * time.Millisecond)
	w.Stop()

	if len(pub.calls) != 1 {
		t.Fatalf("expected one publish within the first interval, got %v", pub.calls)
	}
	second, err := store.GetByID(ctx, 901)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if second.Status != queue.StatusPending {
		t.Fatalf("expected second item still pending, got %s", second.Status)
	}
}

func TestProcessOnceUsesDefaultCaption(t *testing.T) {
	conv := &fakeConverter{}
	pub := &fakePublisher{}
	w, store, files := newWorker(t, conv, pub)
	ctx := context.Background()

	for seq, att := range []queue.Attachment{{ID: "a1", Ext: ".jpg", Kind: queue.KindPhoto}} {
		testsupport.WriteFile(t, files.AttachmentPath(104, seq, att.ID, att.Ext), 32)
	}
	if _, err := store.Add(ctx, &queue.Item{
		ID:     104,
		Author: queue.Author{ID: "1", Name: "alice"},
		Attachments: []queue.Attachment{
			{ID: "a1", Ext: ".jpg", Kind: queue.KindPhoto},
		},
	}); err != nil {
		t.Fatalf("store.Add failed: %v", err)
	}

	if _, err := w.ProcessOnce(ctx); err != nil {
		t.Fatalf("ProcessOnce failed: %v", err)
	}
	if len(pub.calls) != 1 || pub.calls[0] != "photo:#fyp" {
		t.Fatalf("expected default caption, got %v", pub.calls)
	}
}
