package discord

import "context"

// EventAttachment is one media file declared on an inbound submission.
type EventAttachment struct {
	ID          string
	Filename    string
	ContentType string
	URL         string
	Size        int64
}

// SubmissionEvent is delivered when a message is created in a channel the
// gateway watches.
type SubmissionEvent struct {
	MessageID   int64
	ChannelID   int64
	GuildID     int64
	AuthorID    string
	AuthorName  string
	AuthorBot   bool
	Content     string
	Attachments []EventAttachment
}

// DeletionEvent is delivered when a message is removed upstream.
type DeletionEvent struct {
	MessageID int64
	ChannelID int64
	GuildID   int64
}

// EventHandler receives gateway dispatches. Handlers run synchronously on the
// gateway read loop, which keeps create/delete events for one message in
// order; a slow handler delays the next event, not the heartbeat, which runs
// on its own goroutine.
type EventHandler interface {
	HandleSubmission(ctx context.Context, event SubmissionEvent)
	HandleDeletion(ctx context.Context, event DeletionEvent)
}

// EmbedField is one name/value pair on an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Embed is the rich message payload used for the log-channel mirror.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// Status display marks applied to source messages by the reconciler.
const (
	MarkSuccess   = "✅"       // white check mark
	MarkFailed    = "❌"       // cross mark
	MarkUploading = "⬆️" // up arrow
	MarkPending   = "\U0001f552"   // clock face
	MarkUnknown   = "❓"       // question mark
)
