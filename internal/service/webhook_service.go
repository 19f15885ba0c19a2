package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"group-vault/config"
	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"

	"github.com/rs/zerolog"
)

// Webhook request headers.
const (
	HeaderSignature = "X-Vault-Signature"
	HeaderTimestamp = "X-Vault-Timestamp"
	HeaderEventID   = "X-Vault-Event-Id"
	HeaderEventType = "X-Vault-Event-Type"
)

// defaultWebhookRetryIntervals are the waits between delivery attempts.
var defaultWebhookRetryIntervals = []time.Duration{
	1 * time.Second,
	5 * time.Second,
	15 * time.Second,
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookSink implements ports.EventSink by POSTing signed events to one endpoint.
type WebhookSink struct {
	url            string
	secret         string
	sigSvc         ports.SignatureService
	httpClient     HTTPClient
	retryIntervals []time.Duration
	now            func() time.Time
	log            zerolog.Logger
}

// NewWebhookSink creates a webhook sink for cfg.URL.
func NewWebhookSink(cfg config.WebhookConfig, sigSvc ports.SignatureService, httpClient HTTPClient, log zerolog.Logger) *WebhookSink {
	return &WebhookSink{
		url:            cfg.URL,
		secret:         cfg.Secret,
		sigSvc:         sigSvc,
		httpClient:     httpClient,
		retryIntervals: defaultWebhookRetryIntervals,
		now:            time.Now,
		log:            log.With().Str("sink", "webhook").Logger(),
	}
}

// Name implements ports.EventSink.
func (s *WebhookSink) Name() string { return "webhook" }

// Publish delivers the event, retrying on transport errors and non-2xx responses
// until the retry schedule or ctx runs out.
func (s *WebhookSink) Publish(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= len(s.retryIntervals); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("webhook delivery abandoned after %d attempts: %w", attempt, ctx.Err())
			case <-time.After(s.retryIntervals[attempt-1]):
			}
		}

		lastErr = s.deliver(ctx, event, body)
		if lastErr == nil {
			s.log.Debug().
				Str("event_id", event.ID.String()).
				Str("event_type", string(event.Type)).
				Int("attempt", attempt+1).
				Msg("webhook delivered")
			return nil
		}
		s.log.Warn().Err(lastErr).
			Str("event_id", event.ID.String()).
			Int("attempt", attempt+1).
			Msg("webhook delivery failed")
	}

	return fmt.Errorf("webhook retries exhausted: %w", lastErr)
}

func (s *WebhookSink) deliver(ctx context.Context, event domain.Event, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	ts := s.now().Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEventID, event.ID.String())
	req.Header.Set(HeaderEventType, string(event.Type))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	if s.secret != "" {
		req.Header.Set(HeaderSignature, s.sigSvc.Sign(s.secret, CanonicalEventPayload(ts, event.ID.String(), body)))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
