package queue

import (
	"context"
	"fmt"
	"time"
)

// UpdateOption attaches extra fields to a status transition.
type UpdateOption func(*updateExtra)

type updateExtra struct {
	errors        []string
	setErrors     bool
	logMessageID  string
	setLogMessage bool
	stop          bool
	setStop       bool
}

// WithErrors records failure messages alongside the status change.
func WithErrors(messages ...string) UpdateOption {
	return func(e *updateExtra) {
		e.errors = messages
		e.setErrors = true
	}
}

// WithLogMessage records the log-channel message reference on the item.
func WithLogMessage(messageID string) UpdateOption {
	return func(e *updateExtra) {
		e.logMessageID = messageID
		e.setLogMessage = true
	}
}

// WithStop sets the hard-halt flag alongside the status change.
func WithStop(stop bool) UpdateOption {
	return func(e *updateExtra) {
		e.stop = stop
		e.setStop = true
	}
}

// UpdateStatus moves an item to a new status. Every call clears the reacted
// flag and stamps updated_at, so even a same-status rewrite puts the item
// back into the reconcile feed.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status Status, opts ...UpdateOption) error {
	var extra updateExtra
	for _, opt := range opts {
		opt(&extra)
	}

	query := `UPDATE queue_items SET status = ?, reacted = 0, updated_at = ?`
	args := []any{status, time.Now().UTC().Format(time.RFC3339Nano)}

	if extra.setErrors {
		errorsJSON, err := marshalErrors(extra.errors)
		if err != nil {
			return err
		}
		query += `, error = ?`
		args = append(args, errorsJSON)
	}
	if extra.setLogMessage {
		query += `, log_message_id = ?`
		args = append(args, nullableString(extra.logMessageID))
	}
	if extra.setStop {
		query += `, stop = ?`
		args = append(args, boolToInt(extra.stop))
	}

	query += ` WHERE id = ?`
	args = append(args, id)

	if err := s.execWithoutResultRetry(ctx, query, args...); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// MarkFailed moves an item to the failed terminal state. Failing always sets
// the stop flag, so the item never reappears from NextPending without an
// explicit operator retry. Repeated calls converge on the same state.
func (s *Store) MarkFailed(ctx context.Context, id int64, messages ...string) error {
	return s.UpdateStatus(ctx, id, StatusFailed, WithErrors(messages...), WithStop(true))
}

// MarkReacted records that the current status has been acknowledged to the
// source channel. Must only be called after the acknowledgment side effects
// were delivered.
func (s *Store) MarkReacted(ctx context.Context, id int64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items SET reacted = 1 WHERE id = ?`,
		id,
	); err != nil {
		return fmt.Errorf("mark reacted: %w", err)
	}
	return nil
}

// SetLogMessage stores the log-channel message reference without touching
// status or acknowledgment state.
func (s *Store) SetLogMessage(ctx context.Context, id int64, messageID string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items SET log_message_id = ? WHERE id = ?`,
		nullableString(messageID),
		id,
	); err != nil {
		return fmt.Errorf("set log message: %w", err)
	}
	return nil
}

// StopItem sets the hard-halt flag so the item is excluded from dequeue
// regardless of status.
func (s *Store) StopItem(ctx context.Context, id int64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items SET stop = 1 WHERE id = ?`,
		id,
	); err != nil {
		return fmt.Errorf("stop item: %w", err)
	}
	return nil
}

// SetPriority promotes the given ids to the front of the queue in the given
// order and resets every other record to the default priority. Promoted ids
// receive strictly increasing negative priorities (index minus count), so the
// first id sorts first and all promoted items sort before any unpromoted one.
func (s *Store) SetPriority(ctx context.Context, ids []int64) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin priority tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `UPDATE queue_items SET priority = 0 WHERE priority != 0`); err != nil {
			return fmt.Errorf("reset priorities: %w", err)
		}
		for idx, id := range ids {
			if _, err := tx.ExecContext(
				ctx,
				`UPDATE queue_items SET priority = ? WHERE id = ?`,
				idx-len(ids),
				id,
			); err != nil {
				return fmt.Errorf("set priority for %d: %w", id, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit priority tx: %w", err)
		}
		return nil
	})
}

// RetryFailed moves failed items back to pending for reprocessing, clearing
// the stop flag and accumulated errors. With no ids, all failed items are
// requeued.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE queue_items
            SET status = ?, stop = 0, error = NULL, reacted = 0, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			timestamp,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, timestamp)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE queue_items
        SET status = ?, stop = 0, error = NULL, reacted = 0, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}
