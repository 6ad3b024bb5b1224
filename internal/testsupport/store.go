package testsupport

import (
	"context"
	"testing"

	"crosspost/internal/config"
	"crosspost/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewItem builds an unqueued submission record with a single photo attachment.
func NewItem(id int64) *queue.Item {
	return &queue.Item{
		ID:     id,
		Author: queue.Author{ID: "900", Name: "tester"},
		Attachments: []queue.Attachment{
			{ID: "1", Filename: "photo.jpg", Ext: ".jpg", Kind: queue.KindPhoto},
		},
		Caption: "test caption",
	}
}

// AddItem inserts a submission record for tests using the provided store.
func AddItem(t testing.TB, store *queue.Store, id int64) *queue.Item {
	t.Helper()

	item, err := store.Add(context.Background(), NewItem(id))
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return item
}
