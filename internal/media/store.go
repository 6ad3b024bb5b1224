package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Store is a content-addressable temporary area for submission media, keyed
// by submission id. Files live under <root>/<id>/ until the item either
// publishes (directory removed) or fails (files kept for inspection).
type Store struct {
	root string
}

// NewStore creates a media store rooted at the given directory.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("media store root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the directory backing the store.
func (s *Store) Root() string {
	return s.root
}

// ItemDir returns the directory holding media for a submission.
func (s *Store) ItemDir(itemID int64) string {
	return filepath.Join(s.root, strconv.FormatInt(itemID, 10))
}

// AttachmentPath returns the canonical on-disk location for one attachment.
// The sequence index keeps the stored order identical to submission order.
func (s *Store) AttachmentPath(itemID int64, seq int, attachmentID, ext string) string {
	name := fmt.Sprintf("%d_%s%s", seq, attachmentID, ext)
	return filepath.Join(s.ItemDir(itemID), name)
}

// Save streams raw attachment bytes into the store and returns the written
// path.
func (s *Store) Save(itemID int64, seq int, attachmentID, ext string, r io.Reader) (string, error) {
	dir := s.ItemDir(itemID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create item dir: %w", err)
	}

	path := s.AttachmentPath(itemID, seq, attachmentID, ext)
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create attachment file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close attachment file: %w", err)
	}
	return path, nil
}

// RemoveItem deletes the whole directory for a submission. Missing
// directories are not an error.
func (s *Store) RemoveItem(itemID int64) error {
	if err := os.RemoveAll(s.ItemDir(itemID)); err != nil {
		return fmt.Errorf("remove item dir: %w", err)
	}
	return nil
}
