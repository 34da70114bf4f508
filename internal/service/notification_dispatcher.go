package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/exchango/backend/internal/apperror"
	"github.com/exchango/backend/internal/logger"
	"github.com/exchango/backend/internal/metrics"
	"github.com/exchango/backend/internal/model"
	"github.com/exchango/backend/internal/notify"
	"github.com/exchango/backend/internal/retry"
)

// SenderRouter resolves the transport for a contact or a stored channel.
type SenderRouter interface {
	Route(contact string) notify.Sender
	Lookup(channel string) (notify.Sender, bool)
}

// NotificationLogRepository records dispatch outcomes.
type NotificationLogRepository interface {
	Log(ctx context.Context, n *model.NotificationLog) error
	MarkAttempt(ctx context.Context, id int64, status model.NotificationStatus, lastError *string) error
}

// DefaultDispatchTimeout bounds one recipient's delivery, retries included.
const DefaultDispatchTimeout = 45 * time.Second

// NotificationDispatcher composes and delivers matched alerts.
type NotificationDispatcher struct {
	router  SenderRouter
	logs    NotificationLogRepository
	locale  string
	retry   retry.Config
	timeout time.Duration
	logger  *slog.Logger
}

// NewNotificationDispatcher builds a dispatcher. Each Notify call gets its own
// deadline of timeout, detached from the caller's cancellation, so a slow
// recipient cannot use up the time of the ones after it.
func NewNotificationDispatcher(router SenderRouter, logs NotificationLogRepository, locale string, cfg retry.Config, timeout time.Duration, log *slog.Logger) *NotificationDispatcher {
	if locale == "" {
		locale = LocaleEnglish
	}
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	return &NotificationDispatcher{
		router:  router,
		logs:    logs,
		locale:  locale,
		retry:   cfg,
		timeout: timeout,
		logger:  log,
	}
}

// Notify sends the message for match to the alert's recipient. Failures are
// returned as *apperror.DispatchError; nothing else is affected.
func (d *NotificationDispatcher) Notify(ctx context.Context, match Match, contextOffice *model.OfficeRef) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	alert := match.Alert
	ctx = logger.WithAlertID(ctx, alert.ID.String())
	log := logger.With(ctx, d.logger)

	body := ComposeMessage(d.locale, alert, match.TriggerType, match.Rate, contextOffice)
	sender := d.router.Route(alert.RecipientContact)
	channel := sender.Channel()

	to, err := sender.Address(alert.RecipientContact)
	if err != nil {
		metrics.Dispatches.WithLabelValues(channel, "invalid_address").Inc()
		log.Warn("cannot normalize recipient",
			slog.String("recipient", alert.RecipientContact),
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return &apperror.DispatchError{AlertID: alert.ID, Recipient: alert.RecipientContact, Channel: channel, Err: err}
	}

	attempts := 0
	start := time.Now()
	err = retry.Do(ctx, d.retry, log, func(ctx context.Context) error {
		attempts++
		return sender.Send(ctx, to, body)
	})
	metrics.DispatchDuration.WithLabelValues(channel).Observe(time.Since(start).Seconds())

	entry := &model.NotificationLog{
		AlertID:   alert.ID,
		Channel:   channel,
		Recipient: to,
		Body:      body,
		Status:    model.NotificationSent,
		Attempts:  attempts,
	}
	if err != nil {
		msg := err.Error()
		entry.Status = model.NotificationFailed
		entry.LastError = &msg
	}
	d.record(ctx, log, entry)

	if err != nil {
		metrics.Dispatches.WithLabelValues(channel, string(model.NotificationFailed)).Inc()
		log.Error("alert dispatch failed",
			slog.String("recipient", to),
			slog.String("channel", channel),
			slog.Int("attempts", attempts),
			slog.String("error", err.Error()),
		)
		return &apperror.DispatchError{AlertID: alert.ID, Recipient: to, Channel: channel, Err: err}
	}

	metrics.Dispatches.WithLabelValues(channel, string(model.NotificationSent)).Inc()
	log.Info("alert dispatched", slog.String("recipient", to), slog.String("channel", channel))
	return nil
}

// Redeliver makes one more attempt at a failed notification and stores the
// outcome.
func (d *NotificationDispatcher) Redeliver(ctx context.Context, n model.NotificationLog) error {
	ctx = logger.WithAlertID(ctx, n.AlertID.String())
	log := logger.With(ctx, d.logger)

	sender, ok := d.router.Lookup(n.Channel)
	if !ok {
		err := fmt.Errorf("redeliver notification %d: channel %q not configured", n.ID, n.Channel)
		metrics.Dispatches.WithLabelValues(n.Channel, string(model.NotificationSkipped)).Inc()
		if d.logs != nil {
			msg := err.Error()
			if markErr := d.logs.MarkAttempt(ctx, n.ID, model.NotificationSkipped, &msg); markErr != nil {
				log.Error("failed to record skipped redelivery", slog.Int64("notification_id", n.ID), slog.String("error", markErr.Error()))
			}
		}
		return err
	}

	sendErr := sender.Send(ctx, n.Recipient, n.Body)
	status := model.NotificationSent
	var lastError *string
	if sendErr != nil {
		status = model.NotificationFailed
		msg := sendErr.Error()
		lastError = &msg
	}
	metrics.Dispatches.WithLabelValues(n.Channel, string(status)).Inc()

	if d.logs != nil {
		if err := d.logs.MarkAttempt(ctx, n.ID, status, lastError); err != nil {
			log.Error("failed to record redelivery", slog.Int64("notification_id", n.ID), slog.String("error", err.Error()))
		}
	}

	if sendErr != nil {
		return &apperror.DispatchError{AlertID: n.AlertID, Recipient: n.Recipient, Channel: n.Channel, Err: sendErr}
	}
	log.Info("notification redelivered", slog.Int64("notification_id", n.ID), slog.String("recipient", n.Recipient))
	return nil
}

func (d *NotificationDispatcher) record(ctx context.Context, log *slog.Logger, entry *model.NotificationLog) {
	if d.logs == nil {
		return
	}
	if err := d.logs.Log(ctx, entry); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Warn("notification log skipped, context done", slog.String("error", err.Error()))
			return
		}
		log.Error("failed to record notification", slog.String("error", err.Error()))
	}
}
