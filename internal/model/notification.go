package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
	// NotificationSkipped is terminal: the stored channel has no transport.
	NotificationSkipped NotificationStatus = "skipped"
)

// NotificationLog records the outcome of dispatching one alert message.
type NotificationLog struct {
	ID        int64              `db:"id" json:"id"`
	AlertID   uuid.UUID          `db:"alert_id" json:"alertId"`
	Channel   string             `db:"channel" json:"channel"` // whatsapp, email, log
	Recipient string             `db:"recipient" json:"recipient"`
	Body      string             `db:"body" json:"body"`
	Status    NotificationStatus `db:"status" json:"status"`
	LastError *string            `db:"last_error" json:"lastError,omitempty"`
	Attempts  int                `db:"attempts" json:"attempts"`
	CreatedAt time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `db:"updated_at" json:"updatedAt"`
}
