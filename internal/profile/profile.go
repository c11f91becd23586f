// Package profile mirrors the signed-in user to the job runner so analyses
// can be attributed server-side. The sync is strictly fire-and-forget.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"convosense.local/dashboard/internal/auth"
)

const defaultHTTPTimeout = 10 * time.Second

type Syncer struct {
	logger     *log.Logger
	baseURL    string
	httpClient *http.Client
}

type Option func(*Syncer)

func WithHTTPClient(client *http.Client) Option {
	return func(s *Syncer) {
		if client != nil {
			s.httpClient = client
		}
	}
}

func NewSyncer(logger *log.Logger, baseURL string, opts ...Option) *Syncer {
	s := &Syncer{
		logger:     logger,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type userBody struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Sync posts the user record. Errors are logged and swallowed: profile
// bookkeeping must never block or fail an analysis.
func (s *Syncer) Sync(ctx context.Context, user *auth.User) {
	if user == nil || strings.TrimSpace(user.UID) == "" {
		return
	}
	if err := s.post(ctx, user); err != nil {
		s.logger.Printf("profile sync failed uid=%s err=%v", user.UID, err)
	}
}

func (s *Syncer) post(ctx context.Context, user *auth.User) error {
	body, err := json.Marshal(userBody{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	})
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/user", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build user request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("profile sync status=%d", resp.StatusCode)
	}
	return nil
}
