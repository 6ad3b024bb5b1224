package discord

import (
	"fmt"
	"time"

	"crosspost/internal/queue"
)

const (
	colorPending = 0xf1c40f
	colorActive  = 0x3498db
	colorSuccess = 0x2ecc71
	colorFailed  = 0xe74c3c
)

// StatusMark maps a queue status to the reaction applied to the source
// message. Unrecognized statuses get the unknown mark rather than an error.
func StatusMark(status queue.Status) string {
	switch status {
	case queue.StatusSuccess:
		return MarkSuccess
	case queue.StatusFailed:
		return MarkFailed
	case queue.StatusUploading:
		return MarkUploading
	case queue.StatusPending:
		return MarkPending
	default:
		return MarkUnknown
	}
}

// LogEmbed renders the audit embed for a queue item. The reconciler rebuilds
// the same embed with the current status for in-place edits, so every field
// must derive from the record alone.
func LogEmbed(item *queue.Item) Embed {
	embed := Embed{
		Title: fmt.Sprintf("Submission %d", item.ID),
		Color: statusColor(item.Status),
		Fields: []EmbedField{
			{Name: "Author", Value: item.Author.Name, Inline: true},
			{Name: "Attachments", Value: fmt.Sprintf("%d", len(item.Attachments)), Inline: true},
			{Name: "Status", Value: string(item.Status), Inline: true},
		},
	}
	if item.Caption != "" {
		embed.Description = item.Caption
	}
	if len(item.Errors) > 0 {
		embed.Fields = append(embed.Fields, EmbedField{Name: "Error", Value: item.Errors[0]})
	}
	if !item.CreatedAt.IsZero() {
		embed.Timestamp = item.CreatedAt.UTC().Format(time.RFC3339)
	}
	return embed
}

func statusColor(status queue.Status) int {
	switch status {
	case queue.StatusSuccess:
		return colorSuccess
	case queue.StatusFailed:
		return colorFailed
	case queue.StatusProcessing, queue.StatusUploading:
		return colorActive
	default:
		return colorPending
	}
}
