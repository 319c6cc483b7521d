package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// HTTPProvider posts notifications to an HTTP push endpoint. Transient
// failures are retried with exponential backoff inside a bounded window;
// a tripping circuit breaker keeps a dead provider from pinning goroutines
// on every send.
type HTTPProvider struct {
	endpoint string
	apiKey   string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	maxRetry time.Duration
}

func NewHTTPProvider(endpoint, apiKey string, timeout time.Duration) *HTTPProvider {
	tr := &http.Transport{
		DialContext:     (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		MaxIdleConns:    32,
		IdleConnTimeout: 90 * time.Second,
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "push-provider",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &HTTPProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Transport: tr, Timeout: timeout},
		breaker:  breaker,
		maxRetry: 15 * time.Second,
	}
}

// Send posts one notification, retrying transient failures until the backoff
// window is exhausted. A 4xx response is permanent and never retried.
func (p *HTTPProvider) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	operation := func() error {
		_, err := p.breaker.Execute(func() (any, error) {
			return nil, p.post(ctx, body)
		})
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = p.maxRetry
	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

func (p *HTTPProvider) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		// drain body to reuse the connection
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("push provider returned %d", resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("push provider rejected request: %d", resp.StatusCode))
	}
}
