// Package broadcastclient implements the out-of-context broadcast client:
// when a channel broadcast is triggered from code that has no bound
// session, the call is serialized and POSTed to the process's own
// broadcast ingress so fan-out happens uniformly.
package broadcastclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client posts broadcast requests to a SocketAPI ingress endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client that posts to http://host:port. timeout bounds a
// single POST; the call completes only when the POST returns, so it is
// itself a suspension point — callers should pass a context with their
// own deadline when they have one.
func New(host string, port int, timeout time.Duration) *Client {
	return &Client{
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type envelope struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

// Post serializes {channel, data} and POSTs it to path on the configured
// host/port. A non-2xx response is reported as an error; callers surface
// it as a handler fault.
func (c *Client) Post(ctx context.Context, path, channel string, data any) error {
	body, err := json.Marshal(envelope{Channel: channel, Data: data})
	if err != nil {
		return fmt.Errorf("encode broadcast envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build broadcast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post broadcast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("broadcast ingress returned status %d", resp.StatusCode)
	}
	return nil
}
