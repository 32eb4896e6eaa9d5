package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const maxAttempts = 3

var (
	httpClient = &http.Client{Timeout: 10 * time.Second}

	// newBackOff paces retries of transient HTTP failures.
	newBackOff = func() backoff.BackOff { return backoff.NewExponentialBackOff() }
)

// postJSON posts payload as JSON to url. Network errors and 5xx responses are
// retried; any other non-2xx status fails immediately.
func postJSON(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, postOnce(ctx, url, body)
	},
		backoff.WithBackOff(newBackOff()),
		backoff.WithMaxTries(maxAttempts),
	)
	return err
}

func postOnce(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}
