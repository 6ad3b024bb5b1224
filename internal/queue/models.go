package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusUploading  Status = "uploading"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusError      Status = "error"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusUploading,
	StatusSuccess,
	StatusFailed,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// unacknowledgedStatuses are the states the reconciler reflects back to the
// source channel once the worker has written them.
var unacknowledgedStatuses = []Status{
	StatusSuccess,
	StatusFailed,
	StatusUploading,
}

// MediaKind classifies an attachment for conversion and publishing.
type MediaKind string

const (
	KindPhoto   MediaKind = "photo"
	KindVideo   MediaKind = "video"
	KindUnknown MediaKind = "unknown"
)

// Author identifies the submitter of a queue item.
type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Attachment describes one media file belonging to a submission. The order of
// attachments on an item is the order they were submitted in and the order
// they are converted and published in.
type Attachment struct {
	ID       string    `json:"id"`
	Filename string    `json:"filename"`
	Ext      string    `json:"ext"`
	Kind     MediaKind `json:"kind"`
}

// Item represents a submission record persisted in SQLite. The ID is the
// source message id and is assigned upstream, never generated locally.
type Item struct {
	ID           int64
	Author       Author
	Attachments  []Attachment
	Caption      string
	CreatedAt    time.Time
	Status       Status
	Priority     int
	Stop         bool
	Errors       []string
	Reacted      bool
	LogMessageID string
	UpdatedAt    time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends the automatic lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// HasVideo reports whether any attachment on the item is a video.
func (i Item) HasVideo() bool {
	for _, att := range i.Attachments {
		if att.Kind == KindVideo {
			return true
		}
	}
	return false
}
