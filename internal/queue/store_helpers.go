package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const itemColumns = "id, author_id, author_name, attachments, caption, created_at, status, priority, stop, error, reacted, log_message_id, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id             int64
		authorID       string
		authorName     string
		attachmentsRaw string
		caption        sql.NullString
		createdRaw     string
		statusStr      string
		priority       int
		stop           sql.NullInt64
		errorRaw       sql.NullString
		reacted        sql.NullInt64
		logMessageID   sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&authorID,
		&authorName,
		&attachmentsRaw,
		&caption,
		&createdRaw,
		&statusStr,
		&priority,
		&stop,
		&errorRaw,
		&reacted,
		&logMessageID,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:           id,
		Author:       Author{ID: authorID, Name: authorName},
		Caption:      caption.String,
		Status:       Status(statusStr),
		Priority:     priority,
		LogMessageID: logMessageID.String,
	}
	if stop.Valid {
		item.Stop = stop.Int64 != 0
	}
	if reacted.Valid {
		item.Reacted = reacted.Int64 != 0
	}

	if attachmentsRaw != "" {
		if err := json.Unmarshal([]byte(attachmentsRaw), &item.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachments: %w", err)
		}
	}
	if errorRaw.Valid && errorRaw.String != "" {
		if err := json.Unmarshal([]byte(errorRaw.String), &item.Errors); err != nil {
			return nil, fmt.Errorf("decode error list: %w", err)
		}
	}

	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updatedRaw.Valid {
		if updated, err := parseTimeString(updatedRaw.String); err == nil {
			item.UpdatedAt = updated
		}
	}
	return item, nil
}

func marshalAttachments(attachments []Attachment) (string, error) {
	if attachments == nil {
		attachments = []Attachment{}
	}
	data, err := json.Marshal(attachments)
	if err != nil {
		return "", fmt.Errorf("marshal attachments: %w", err)
	}
	return string(data), nil
}

func marshalErrors(messages []string) (any, error) {
	if len(messages) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("marshal error list: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
