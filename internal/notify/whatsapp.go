package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/go-resty/resty/v2"

	"github.com/exchango/backend/internal/retry"
)

const whatsAppSuffix = "@c.us"

// WhatsAppConfig points at a whatsapp-web.js style HTTP gateway.
type WhatsAppConfig struct {
	BaseURL string
	Session string
	APIKey  string
	Timeout time.Duration
}

type sendMessageRequest struct {
	ChatID      string `json:"chatId"`
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type sendMessageResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// WhatsAppSender posts messages to the gateway's sendMessage endpoint.
type WhatsAppSender struct {
	client  *resty.Client
	session string
}

func NewWhatsAppSender(cfg WhatsAppConfig) *WhatsAppSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Session == "" {
		cfg.Session = "default"
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("x-api-key", cfg.APIKey)
	}

	return &WhatsAppSender{client: client, session: cfg.Session}
}

func (s *WhatsAppSender) Channel() string { return ChannelWhatsApp }

// Address keeps the digits of a phone number and appends the chat suffix.
func (s *WhatsAppSender) Address(contact string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, strings.TrimSuffix(contact, whatsAppSuffix))
	if digits == "" {
		return "", fmt.Errorf("%w: %q has no digits", ErrInvalidAddress, contact)
	}
	return digits + whatsAppSuffix, nil
}

// Send delivers body to chatID. Client errors other than 429 are permanent.
func (s *WhatsAppSender) Send(ctx context.Context, chatID, body string) error {
	var result sendMessageResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{ChatID: chatID, ContentType: "string", Content: body}).
		SetResult(&result).
		SetError(&result).
		Post("/client/sendMessage/" + s.session)
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}

	if resp.IsError() {
		err := fmt.Errorf("whatsapp gateway returned %d: %s", resp.StatusCode(), result.Error)
		if resp.StatusCode() < http.StatusInternalServerError && resp.StatusCode() != http.StatusTooManyRequests {
			return retry.Permanent(err)
		}
		return err
	}
	if !result.Success {
		if result.Error != "" {
			return fmt.Errorf("whatsapp gateway rejected message: %s", result.Error)
		}
		return fmt.Errorf("whatsapp gateway returned success=false")
	}
	return nil
}
