package media

import (
	"strings"

	"crosspost/internal/queue"
)

// allowedTypes is the fixed mapping from declared MIME type to media kind.
// Anything outside this table is invalid and rejects the whole submission.
var allowedTypes = map[string]queue.MediaKind{
	"image/jpeg":       queue.KindPhoto,
	"image/png":        queue.KindPhoto,
	"video/mp4":        queue.KindVideo,
	"video/mpeg":       queue.KindVideo,
	"video/x-matroska": queue.KindVideo,
	"video/quicktime":  queue.KindVideo,
}

// KindForContentType maps a declared MIME type to a media kind. Parameters
// after a semicolon (charset, codecs) are ignored.
func KindForContentType(contentType string) (queue.MediaKind, bool) {
	normalized := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.IndexByte(normalized, ';'); idx >= 0 {
		normalized = strings.TrimSpace(normalized[:idx])
	}
	kind, ok := allowedTypes[normalized]
	if !ok {
		return queue.KindUnknown, false
	}
	return kind, true
}
