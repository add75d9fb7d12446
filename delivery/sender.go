package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/formhive/hookline/signature"
	"github.com/formhive/hookline/subscription"
)

// Result captures the outcome of one HTTP exchange with a subscriber.
type Result struct {
	StatusCode      int
	ResponseBody    string
	ResponseHeaders map[string]string
	Error           string
	DurationMs      int

	// SentHeaders is the full header set as sent, recorded on the
	// attempt row for auditability.
	SentHeaders map[string]string
}

// Success reports whether the subscriber acknowledged the delivery.
// Only 2xx counts; redirects are not followed into success.
func (r Result) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Sender performs HTTP webhook delivery.
type Sender struct {
	client          *http.Client
	userAgent       string
	maxResponseBody int64
}

// NewSender creates a sender with the given HTTP timeout.
func NewSender(timeout time.Duration, userAgent string, maxResponseBody int64) *Sender {
	return &Sender{
		client:          &http.Client{Timeout: timeout},
		userAgent:       userAgent,
		maxResponseBody: maxResponseBody,
	}
}

// Send delivers the payload bytes to a subscription. The body is signed at
// send time with a fresh timestamp and the subscription's current secret, so
// a retry of old bytes still verifies against the latest secret.
func (s *Sender) Send(ctx context.Context, sub *subscription.Subscription, body []byte, deliveryID string, eventType string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return Result{Error: fmt.Sprintf("create request: %v", err)}
	}

	// Standard headers.
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("X-Webhook-Event", eventType)
	req.Header.Set("X-Webhook-Delivery", deliveryID)

	// HMAC signature over "{ts}.{body}".
	sig := signature.Sign(body, sub.Secret, time.Now().Unix())
	req.Header.Set("X-Webhook-Signature", sig)

	// Custom subscription headers last, so they win on collision.
	for k, v := range sub.Headers {
		req.Header.Set(k, v)
	}

	sent := make(map[string]string, len(req.Header))
	for k := range req.Header {
		sent[k] = req.Header.Get(k)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	duration := int(time.Since(start).Milliseconds())

	if err != nil {
		return Result{
			Error:       err.Error(),
			DurationMs:  duration,
			SentHeaders: sent,
		}
	}
	defer resp.Body.Close()

	respHeaders := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		respHeaders[k] = resp.Header.Get(k)
	}

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, s.maxResponseBody))
	if readErr != nil {
		return Result{
			StatusCode:      resp.StatusCode,
			ResponseHeaders: respHeaders,
			Error:           fmt.Sprintf("read response: %v", readErr),
			DurationMs:      duration,
			SentHeaders:     sent,
		}
	}

	res := Result{
		StatusCode:      resp.StatusCode,
		ResponseBody:    string(respBody),
		ResponseHeaders: respHeaders,
		DurationMs:      duration,
		SentHeaders:     sent,
	}
	if !res.Success() {
		res.Error = fmt.Sprintf("subscriber returned %d", resp.StatusCode)
	}
	return res
}
