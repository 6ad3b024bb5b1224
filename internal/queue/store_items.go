package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Add inserts a new submission record. The item id is the source message id,
// so a second delivery of the same message fails with ErrDuplicateItem.
func (s *Store) Add(ctx context.Context, item *Item) (*Item, error) {
	if item == nil {
		return nil, errors.New("item is nil")
	}
	if item.ID == 0 {
		return nil, errors.New("item id is required")
	}

	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	attachmentsJSON, err := marshalAttachments(item.Attachments)
	if err != nil {
		return nil, err
	}

	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (
            id, author_id, author_name, attachments, caption, created_at,
            status, priority, stop, error, reacted, log_message_id, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.Author.ID,
		item.Author.Name,
		attachmentsJSON,
		nullableString(item.Caption),
		createdAt.Format(time.RFC3339Nano),
		StatusPending,
		0,
		0,
		nil,
		0,
		nil,
		nil,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, fmt.Errorf("insert item %d: %w", item.ID, ErrDuplicateItem)
		}
		return nil, fmt.Errorf("insert item: %w", err)
	}

	return s.GetByID(ctx, item.ID)
}

// GetByID fetches a queue item by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// NextPending returns the pending item that sorts first by (priority, id), or
// nil when nothing is eligible. Items with the stop flag set are never
// returned regardless of status. This is a pure read; claiming the item is a
// separate status update performed by the caller.
func (s *Store) NextPending(ctx context.Context) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items
         WHERE stop = 0 AND status = ?
         ORDER BY priority, id LIMIT 1`,
		StatusPending,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}
	return item, nil
}

// List returns queue items filtered by status set (or all items when no status
// is provided), in dequeue order.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM queue_items`
	orderClause := ` ORDER BY priority, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Unacknowledged returns records whose latest status has not yet been
// reflected to the source channel. This is the reconciler feed.
func (s *Store) Unacknowledged(ctx context.Context) ([]*Item, error) {
	placeholders := makePlaceholders(len(unacknowledgedStatuses))
	args := make([]any, len(unacknowledgedStatuses))
	for i, status := range unacknowledgedStatuses {
		args[i] = status
	}

	query := `SELECT ` + itemColumns + ` FROM queue_items
        WHERE reacted = 0 AND status IN (` + placeholders + `) ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unacknowledged: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Remove deletes an item by identifier. A missing id is reported, not fatal.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Count returns the total number of records in the queue.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM queue_items`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count queue items: %w", err)
	}
	return count, nil
}

// CountPending returns the number of items still waiting to be processed.
func (s *Store) CountPending(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM queue_items WHERE stop = 0 AND status = ?`,
		StatusPending,
	)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending items: %w", err)
	}
	return count, nil
}

// Clear removes all items from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed items from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}
