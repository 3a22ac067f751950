// Package notify delivers fired alarms to notification channels.
package notify

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hrygo/healthlog/plugin/trigger"
)

// Notification is what a channel presents to the user.
type Notification struct {
	At         time.Time `json:"at"`
	AlarmID    string    `json:"alarm_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Category   string    `json:"category"`
	StopAction string    `json:"stop_action"`
	Sound      string    `json:"sound"`
}

// NewNotification builds a notification from a trigger payload.
func NewNotification(payload trigger.Payload, at time.Time) *Notification {
	return &Notification{
		At:         at,
		AlarmID:    payload.AlarmID,
		Title:      payload.Title,
		Body:       payload.Body,
		Category:   payload.Category,
		StopAction: payload.StopAction,
		Sound:      payload.Sound,
	}
}

// Channel defines the interface for notification targets.
type Channel interface {
	// Name identifies the channel in logs and errors.
	Name() string

	// Send presents n to the user.
	Send(ctx context.Context, n *Notification) error

	// Close releases any open connections.
	Close() error
}

// ChannelError reports a failed delivery on one channel.
type ChannelError struct {
	Err     error
	Channel string
}

func (e *ChannelError) Error() string {
	return e.Channel + ": " + e.Err.Error()
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// Dispatcher fans fired alarms out to every registered channel.
// Concurrent-safe for Register and Deliver.
type Dispatcher struct {
	ringer   *Ringer
	logger   *slog.Logger
	channels []Channel
	mu       sync.RWMutex
}

// NewDispatcher creates a dispatcher marking delivered alarms as ringing in ringer.
func NewDispatcher(ringer *Ringer, logger *slog.Logger) *Dispatcher {
	if ringer == nil {
		ringer = NewRinger()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{ringer: ringer, logger: logger}
}

// Register adds a channel. Channels receive notifications in registration order.
func (d *Dispatcher) Register(channel Channel) {
	d.mu.Lock()
	d.channels = append(d.channels, channel)
	d.mu.Unlock()
}

// Channels returns the names of the registered channels.
func (d *Dispatcher) Channels() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		names = append(names, ch.Name())
	}
	return names
}

// Ringer returns the ringer tracking delivered alarms.
func (d *Dispatcher) Ringer() *Ringer {
	return d.ringer
}

// Deliver marks the alarm ringing and sends it to every channel.
// A failing channel does not stop the others; failures are joined.
func (d *Dispatcher) Deliver(ctx context.Context, payload trigger.Payload, at time.Time) error {
	n := NewNotification(payload, at)
	d.ringer.Start(n)

	d.mu.RLock()
	channels := append([]Channel(nil), d.channels...)
	d.mu.RUnlock()

	var errs []error
	for _, ch := range channels {
		if err := ch.Send(ctx, n); err != nil {
			d.logger.Warn("Dispatcher: delivery failed", "channel", ch.Name(), "alarm_id", n.AlarmID, "error", err)
			errs = append(errs, &ChannelError{Channel: ch.Name(), Err: err})
		}
	}
	return stderrors.Join(errs...)
}

var _ io.Closer = (*Dispatcher)(nil)

// Close closes all registered channels.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for _, ch := range d.channels {
		if err := ch.Close(); err != nil {
			errs = append(errs, &ChannelError{Channel: ch.Name(), Err: err})
		}
	}
	return stderrors.Join(errs...)
}

// LogChannel writes notifications to a structured logger.
type LogChannel struct {
	logger *slog.Logger
}

func NewLogChannel(logger *slog.Logger) *LogChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Send(ctx context.Context, n *Notification) error {
	c.logger.InfoContext(ctx, "Alarm ringing",
		"alarm_id", n.AlarmID,
		"title", n.Title,
		"body", n.Body,
		"sound", n.Sound,
		"stop_action", n.StopAction,
		"at", n.At.Format(time.RFC3339),
	)
	return nil
}

func (c *LogChannel) Close() error { return nil }
