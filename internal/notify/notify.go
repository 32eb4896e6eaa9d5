// Package notify delivers cleanup reports to operators over email, chat
// webhooks and generic HTTP endpoints.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"xcleanup/internal/config"
	"xcleanup/internal/metrics"
)

// Notifier delivers one message on one channel.
type Notifier interface {
	Send(ctx context.Context, subject, message string) error
}

type channel struct {
	name     string
	notifier Notifier
}

// Composite fans a message out to every configured channel. A failing
// channel is logged and never stops the others.
type Composite struct {
	channels []channel
	logger   *slog.Logger
}

// NewComposite creates an empty composite.
func NewComposite(logger *slog.Logger) *Composite {
	metrics.Init()
	if logger == nil {
		logger = slog.Default()
	}
	return &Composite{logger: logger.With("component", "notify")}
}

// Add registers a notifier under a channel name used in logs and metrics.
func (c *Composite) Add(name string, n Notifier) {
	c.channels = append(c.channels, channel{name: name, notifier: n})
}

// Len returns the number of registered channels.
func (c *Composite) Len() int { return len(c.channels) }

// Channels returns the registered channel names in delivery order.
func (c *Composite) Channels() []string {
	names := make([]string, len(c.channels))
	for i, ch := range c.channels {
		names[i] = ch.name
	}
	return names
}

// SendAll delivers to every channel in order and returns the joined
// failures. Callers may ignore the error; failures are already logged.
func (c *Composite) SendAll(ctx context.Context, subject, message string) error {
	if c == nil {
		return nil
	}

	var errs []error
	for _, ch := range c.channels {
		err := ch.notifier.Send(ctx, subject, message)
		metrics.RecordNotification(ch.name, err)
		if err != nil {
			c.logger.Warn("Notification failed", "channel", ch.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", ch.name, err))
			continue
		}
		c.logger.Debug("notification sent", "channel", ch.name)
	}
	return errors.Join(errs...)
}

// FromConfig builds a composite holding every enabled channel. It returns an
// empty composite when notifications are disabled globally.
func FromConfig(cfg config.NotificationsCfg, logger *slog.Logger) *Composite {
	c := NewComposite(logger)
	if !cfg.Enabled {
		return c
	}

	if cfg.Email.Enabled {
		c.Add("email", &Email{
			Host:       cfg.Email.SMTPHost,
			Port:       cfg.Email.SMTPPort,
			Username:   cfg.Email.SMTPUsername,
			Password:   cfg.Email.SMTPPassword,
			Encryption: cfg.Email.SMTPEncryption,
			From:       cfg.Email.From,
			To:         cfg.Email.To,
		})
	}
	if cfg.Telegram.Enabled {
		c.Add("telegram", &Telegram{BotToken: cfg.Telegram.BotToken, ChatID: cfg.Telegram.ChatID})
	}
	if cfg.Slack.Enabled {
		c.Add("slack", &Slack{WebhookURL: cfg.Slack.WebhookURL})
	}
	if cfg.Discord.Enabled {
		c.Add("discord", &Discord{WebhookURL: cfg.Discord.WebhookURL})
	}
	if cfg.Webhook.Enabled {
		c.Add("webhook", &Webhook{URL: cfg.Webhook.URL})
	}
	return c
}
