package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"convosense.local/dashboard/internal/orchestrator"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxErrorBodyBytes  = 1 << 20
)

type WebhookOption func(*WebhookSubscriber)

// WebhookSubscriber POSTs each snapshot to an external URL. An optional
// filter limits which snapshots go out (terminal-only, for example).
type WebhookSubscriber struct {
	name       string
	URL        string
	httpClient *http.Client
	filter     func(orchestrator.Snapshot) bool
}

func NewWebhookSubscriber(name, url string, opts ...WebhookOption) *WebhookSubscriber {
	sub := &WebhookSubscriber{
		name:       strings.TrimSpace(name),
		URL:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	if sub.name == "" {
		sub.name = "webhook"
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sub)
		}
	}
	return sub
}

func WithWebhookHTTPClient(client *http.Client) WebhookOption {
	return func(s *WebhookSubscriber) {
		if client != nil {
			s.httpClient = client
		}
	}
}

func WithSnapshotFilter(filter func(orchestrator.Snapshot) bool) WebhookOption {
	return func(s *WebhookSubscriber) {
		s.filter = filter
	}
}

// TerminalOnly keeps webhook traffic down to one call per session outcome.
func TerminalOnly(snapshot orchestrator.Snapshot) bool {
	return snapshot.Session.Status == orchestrator.StatusCompleted ||
		snapshot.Session.Status == orchestrator.StatusFailed
}

func (s *WebhookSubscriber) Name() string {
	return s.name
}

func (s *WebhookSubscriber) Handle(ctx context.Context, snapshot orchestrator.Snapshot) error {
	if s.filter != nil && !s.filter(snapshot) {
		return nil
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	limited := io.LimitReader(resp.Body, maxErrorBodyBytes+1)
	errorBody, err := io.ReadAll(limited)
	if err != nil {
		return fmt.Errorf("webhook status=%d read body: %w", resp.StatusCode, err)
	}
	truncated := ""
	if len(errorBody) > maxErrorBodyBytes {
		errorBody = errorBody[:maxErrorBodyBytes]
		truncated = " (truncated)"
	}
	return fmt.Errorf("webhook status=%d body=%q%s", resp.StatusCode, string(errorBody), truncated)
}
