package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"beaconattend/internal/apperr"
)

// maxAckBytes bounds how much of the device reply is read.
const maxAckBytes = 1 << 20

// Ack is the scanning device's reply, relayed to the caller unchanged.
type Ack struct {
	StatusCode int
	Body       json.RawMessage
}

// Client calls the scanning device's start endpoint.
type Client struct {
	URL  string
	HTTP *http.Client
}

// New creates a client. Every request is bounded by timeout.
func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		URL:  url,
		HTTP: &http.Client{Timeout: timeout},
	}
}

// StartScan sends one POST {"scanTime": seconds}. Any status code is relayed;
// transport failures, timeouts and non-JSON replies wrap
// apperr.ErrUpstreamUnavailable.
func (c *Client) StartScan(ctx context.Context, seconds int) (Ack, error) {
	body, err := json.Marshal(map[string]int{"scanTime": seconds})
	if err != nil {
		return Ack{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return Ack{}, fmt.Errorf("%w: build request: %v", apperr.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Ack{}, fmt.Errorf("%w: %v", apperr.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAckBytes))
	if err != nil {
		return Ack{}, fmt.Errorf("%w: read reply: %v", apperr.ErrUpstreamUnavailable, err)
	}
	if !json.Valid(raw) {
		return Ack{}, fmt.Errorf("%w: device replied %s with non-JSON body", apperr.ErrUpstreamUnavailable, resp.Status)
	}
	return Ack{StatusCode: resp.StatusCode, Body: json.RawMessage(raw)}, nil
}
