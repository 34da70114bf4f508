// Package notify delivers composed alert messages over WhatsApp, email or
// the log.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

var ErrInvalidAddress = errors.New("invalid recipient address")

const (
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
	ChannelLog      = "log"
)

// Sender delivers a text message on one channel.
type Sender interface {
	Channel() string
	// Address normalizes a raw contact into the channel's address form.
	Address(contact string) (string, error)
	Send(ctx context.Context, to, body string) error
}

// Router picks a sender for a recipient contact. Contacts containing "@" go
// to email when an email sender is configured; everything else goes to
// WhatsApp, or to the log sender when no gateway is configured.
type Router struct {
	whatsapp Sender
	email    Sender
	fallback Sender
}

// NewRouter builds a router; nil senders are skipped.
func NewRouter(whatsapp, email Sender, logger *slog.Logger) *Router {
	return &Router{
		whatsapp: whatsapp,
		email:    email,
		fallback: NewLogSender(logger),
	}
}

func (r *Router) Route(contact string) Sender {
	if strings.Contains(contact, "@") && r.email != nil {
		return r.email
	}
	if r.whatsapp != nil {
		return r.whatsapp
	}
	return r.fallback
}

// Lookup returns the configured sender for a stored channel name.
func (r *Router) Lookup(channel string) (Sender, bool) {
	switch channel {
	case ChannelWhatsApp:
		return r.whatsapp, r.whatsapp != nil
	case ChannelEmail:
		return r.email, r.email != nil
	case ChannelLog:
		return r.fallback, true
	}
	return nil, false
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Channel() string { return ChannelLog }

func (s *LogSender) Address(contact string) (string, error) {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return "", ErrInvalidAddress
	}
	return contact, nil
}

func (s *LogSender) Send(_ context.Context, to, body string) error {
	s.logger.Info("alert notification", slog.String("to", to), slog.String("body", body))
	return nil
}
