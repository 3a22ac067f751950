// Package telegram implements the Telegram Bot notification channel.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/healthlog/plugin/notify"
)

// Config holds configuration for the Telegram channel.
type Config struct {
	BotToken string
	ChatID   string
	// APIEndpoint overrides tgbotapi.APIEndpoint, e.g. for a local Bot API server.
	APIEndpoint string
}

// Channel sends alarm notifications to one Telegram chat.
type Channel struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewChannel creates a Telegram channel. It contacts the Bot API to verify the token.
func NewChannel(config *Config, client tgbotapi.HTTPClient) (*Channel, error) {
	chatID, err := strconv.ParseInt(config.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	endpoint := config.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	var bot *tgbotapi.BotAPI
	if client != nil {
		bot, err = tgbotapi.NewBotAPIWithClient(config.BotToken, endpoint, client)
	} else {
		bot, err = tgbotapi.NewBotAPIWithAPIEndpoint(config.BotToken, endpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	return &Channel{bot: bot, chatID: chatID}, nil
}

func (c *Channel) Name() string { return "telegram" }

// Send posts the notification as a text message.
func (c *Channel) Send(ctx context.Context, n *notify.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	slog.Debug("telegram: sending alarm", "chat_id", c.chatID, "alarm_id", n.AlarmID)

	msg := tgbotapi.NewMessage(c.chatID, Format(n))
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}
	return nil
}

func (c *Channel) Close() error {
	c.bot.StopReceivingUpdates()
	return nil
}

// Format renders a notification as plain text.
func Format(n *notify.Notification) string {
	var b strings.Builder
	b.WriteString("⏰ ")
	b.WriteString(n.Title)
	if n.Body != "" {
		b.WriteString("\n")
		b.WriteString(n.Body)
	}
	if !n.At.IsZero() {
		b.WriteString("\n")
		b.WriteString(n.At.Format("15:04"))
	}
	return b.String()
}
