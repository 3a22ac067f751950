package email

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/healthlog/plugin/notify"
)

func validConfig() *Config {
	return &Config{
		SMTPHost:  "smtp.example.com",
		SMTPPort:  587,
		FromEmail: "alarms@example.com",
		FromName:  "Health Log",
		ToEmail:   "me@example.com",
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing host", func(c *Config) { c.SMTPHost = "" }},
		{"port out of range", func(c *Config) { c.SMTPPort = 70000 }},
		{"missing sender", func(c *Config) { c.FromEmail = "" }},
		{"missing recipient", func(c *Config) { c.ToEmail = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigAddressAndFrom(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "smtp.example.com:587", cfg.GetServerAddress())
	assert.Equal(t, "Health Log <alarms@example.com>", cfg.GetFromHeader())
	cfg.FromName = ""
	assert.Equal(t, "alarms@example.com", cfg.GetFromHeader())
}

func TestMessage(t *testing.T) {
	n := &notify.Notification{
		AlarmID: "a1",
		Title:   "Health Log",
		Body:    "Take\r\npills",
		At:      time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC),
	}
	msg := string(Message(validConfig(), n))

	assert.Contains(t, msg, "To: me@example.com\r\n")
	assert.Contains(t, msg, "Subject: Health Log: Take  pills\r\n")
	assert.Contains(t, msg, "\r\n\r\nTake\r\npills\r\n2024-06-04 09:00\r\n")
}

func TestChannelSend(t *testing.T) {
	ch, err := NewChannel(validConfig())
	require.NoError(t, err)

	var sent []byte
	ch.send = func(_ context.Context, cfg *Config, msg []byte) error {
		assert.Equal(t, "me@example.com", cfg.ToEmail)
		sent = msg
		return nil
	}
	n := &notify.Notification{AlarmID: "a1", Title: "Health Log", Body: "Walk", At: time.Now()}
	require.NoError(t, ch.Send(context.Background(), n))
	assert.True(t, strings.HasPrefix(string(sent), "From: Health Log <alarms@example.com>\r\n"))

	ch.send = func(context.Context, *Config, []byte) error { return errors.New("connection reset") }
	err = ch.Send(context.Background(), n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a1")
}

func TestNewChannelRejectsInvalidConfig(t *testing.T) {
	_, err := NewChannel(&Config{})
	assert.Error(t, err)
}
