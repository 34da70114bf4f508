package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/exchango/backend/internal/model"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository keeps the per-recipient dispatch log.
type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Log records a dispatch outcome.
func (r *NotificationRepository) Log(ctx context.Context, n *model.NotificationLog) error {
	query := `
		INSERT INTO notification_logs (alert_id, channel, recipient, body, status, last_error, attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, query,
		n.AlertID, n.Channel, n.Recipient, n.Body, n.Status, n.LastError, n.Attempts,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("log notification: %w", err)
	}
	return nil
}

// ListRetryable returns failed notifications that still have attempts left, oldest first.
func (r *NotificationRepository) ListRetryable(ctx context.Context, maxAttempts, limit int) ([]model.NotificationLog, error) {
	var logs []model.NotificationLog
	err := r.db.SelectContext(ctx, &logs, `
		SELECT * FROM notification_logs
		WHERE status = $1 AND attempts < $2
		ORDER BY created_at
		LIMIT $3
	`, model.NotificationFailed, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("list retryable notifications: %w", err)
	}
	return logs, nil
}

// MarkAttempt stores the result of another delivery attempt.
func (r *NotificationRepository) MarkAttempt(ctx context.Context, id int64, status model.NotificationStatus, lastError *string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notification_logs
		SET status = $2, last_error = $3, attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1
	`, id, status, lastError)
	if err != nil {
		return fmt.Errorf("mark notification attempt: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification attempt: %w", err)
	}
	if rows == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
