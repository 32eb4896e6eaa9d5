package notify

import (
	"context"
	"strings"
)

const telegramAPI = "https://api.telegram.org"

func chatText(subject, message string) string {
	return subject + "\n\n" + message
}

// Slack posts to an incoming webhook.
type Slack struct {
	WebhookURL string
}

func (s *Slack) Send(ctx context.Context, subject, message string) error {
	return postJSON(ctx, s.WebhookURL, map[string]string{"text": chatText(subject, message)})
}

// Discord posts to a channel webhook.
type Discord struct {
	WebhookURL string
}

func (d *Discord) Send(ctx context.Context, subject, message string) error {
	return postJSON(ctx, d.WebhookURL, map[string]string{"content": chatText(subject, message)})
}

// Telegram sends through the Bot API sendMessage method.
type Telegram struct {
	BotToken string
	ChatID   string
	APIBase  string // defaults to the public Bot API
}

func (t *Telegram) Send(ctx context.Context, subject, message string) error {
	base := t.APIBase
	if base == "" {
		base = telegramAPI
	}
	url := strings.TrimRight(base, "/") + "/bot" + t.BotToken + "/sendMessage"
	return postJSON(ctx, url, map[string]string{
		"chat_id": t.ChatID,
		"text":    chatText(subject, message),
	})
}

// Webhook posts a structured JSON document to an arbitrary endpoint.
type Webhook struct {
	URL string
}

type webhookPayload struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (w *Webhook) Send(ctx context.Context, subject, message string) error {
	return postJSON(ctx, w.URL, webhookPayload{Subject: subject, Message: message})
}
