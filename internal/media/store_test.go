package media_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crosspost/internal/media"
	"crosspost/internal/queue"
)

func TestStoreSavePreservesOrder(t *testing.T) {
	store, err := media.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	first, err := store.Save(1001, 0, "aaa", ".jpg", strings.NewReader("one"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	second, err := store.Save(1001, 1, "bbb", ".mp4", strings.NewReader("two"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if filepath.Dir(first) != store.ItemDir(1001) || filepath.Dir(second) != store.ItemDir(1001) {
		t.Fatalf("expected both files under item dir, got %s and %s", first, second)
	}
	if filepath.Base(first) != "0_aaa.jpg" || filepath.Base(second) != "1_bbb.mp4" {
		t.Fatalf("unexpected file names: %s, %s", filepath.Base(first), filepath.Base(second))
	}

	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "one" {
		t.Fatalf("unexpected file contents: %q", data)
	}
}

func TestStoreRemoveItem(t *testing.T) {
	store, err := media.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if _, err := store.Save(55, 0, "x", ".jpg", strings.NewReader("payload")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.RemoveItem(55); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	if _, err := os.Stat(store.ItemDir(55)); !os.IsNotExist(err) {
		t.Fatalf("expected item dir removed, stat err: %v", err)
	}

	// Removing again is a no-op.
	if err := store.RemoveItem(55); err != nil {
		t.Fatalf("second RemoveItem failed: %v", err)
	}
}

func TestKindForContentType(t *testing.T) {
	cases := []struct {
		contentType string
		kind        queue.MediaKind
		ok          bool
	}{
		{"image/jpeg", queue.KindPhoto, true},
		{"image/png", queue.KindPhoto, true},
		{"IMAGE/PNG", queue.KindPhoto, true},
		{"video/mp4", queue.KindVideo, true},
		{"video/quicktime", queue.KindVideo, true},
		{"video/mp4; codecs=avc1", queue.KindVideo, true},
		{"image/gif", queue.KindUnknown, false},
		{"application/octet-stream", queue.KindUnknown, false},
		{"", queue.KindUnknown, false},
	}
	for _, tc := range cases {
		kind, ok := media.KindForContentType(tc.contentType)
		if kind != tc.kind || ok != tc.ok {
			t.Errorf("KindForContentType(%q) = %s, %v; want %s, %v", tc.contentType, kind, ok, tc.kind, tc.ok)
		}
	}
}
