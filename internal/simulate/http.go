package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/okian/pairrank/internal/domain/model"
)

// Client talks to a running pairrank server.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type choiceRequest struct {
	PresentationID string `json:"presentation_id"`
	WinnerIndex    int    `json:"winner_index"`
}

type choiceResponse struct {
	Judgment  model.Judgment `json:"judgment"`
	Duplicate bool           `json:"duplicate"`
}

// Health checks that /healthz answers 200.
func (c *Client) Health(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}
	return nil
}

// Reset discards the server session.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/reset", nil, nil)
}

// Pair returns the current presentation.
func (c *Client) Pair(ctx context.Context) (model.Presentation, error) {
	var p model.Presentation
	err := c.do(ctx, http.MethodGet, "/pair", nil, &p)
	return p, err
}

// Choose submits a decision for presentationID. A 409 is reported as
// ErrConflict.
func (c *Client) Choose(ctx context.Context, presentationID string, winnerIndex int) (model.Judgment, bool, error) {
	var resp choiceResponse
	err := c.do(ctx, http.MethodPost, "/choice", choiceRequest{PresentationID: presentationID, WinnerIndex: winnerIndex}, &resp)
	return resp.Judgment, resp.Duplicate, err
}

// Ranking returns the server standings.
func (c *Client) Ranking(ctx context.Context) ([]model.Standing, error) {
	var out []model.Standing
	err := c.do(ctx, http.MethodGet, "/ranking", nil, &out)
	return out, err
}

// do performs one request, retrying transport errors and 5xx responses with
// exponential backoff. 4xx responses are not retried.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %s %s: %d", ErrUnexpected, method, path, resp.StatusCode)
		case resp.StatusCode == http.StatusConflict:
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrConflict, bytes.TrimSpace(data)))
		case resp.StatusCode >= http.StatusBadRequest:
			return backoff.Permanent(fmt.Errorf("%w: %s %s: %d %s", ErrUnexpected, method, path, resp.StatusCode, bytes.TrimSpace(data)))
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s: %w", path, err))
		}
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 100 * time.Millisecond
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(eb, maxRetries), ctx))
}
