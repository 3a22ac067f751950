// Package webhook posts alarm notifications to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/healthlog/plugin/notify"
)

var (
	// timeout is the timeout for webhook request. Default to 30 seconds.
	timeout = 30 * time.Second
)

// RequestPayload is the JSON body posted to the endpoint.
type RequestPayload struct {
	Notification *notify.Notification `json:"notification"`
	ActivityType string               `json:"activityType"`
}

// Channel posts every notification to URL.
type Channel struct {
	client *http.Client
	URL    string
}

func NewChannel(url string) *Channel {
	return &Channel{
		URL:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *Channel) Name() string { return "webhook" }

// Send posts the notification to the webhook endpoint.
func (c *Channel) Send(ctx context.Context, n *notify.Notification) error {
	body, err := json.Marshal(&RequestPayload{Notification: n, ActivityType: "alarms.fired"})
	if err != nil {
		return errors.Wrapf(err, "failed to marshal webhook request to %s", c.URL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewBuffer(body))
	if err != nil {
		return errors.Wrapf(err, "failed to construct webhook request to %s", c.URL)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to post webhook to %s", c.URL)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "failed to read webhook response from %s", c.URL)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("failed to post webhook %s, status code: %d, response body: %s", c.URL, resp.StatusCode, b)
	}
	return nil
}

func (c *Channel) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
