// Package submit issues the one-shot analysis request to the job runner.
// It never retries: resubmitting with a stale correlation token would let a
// dead session capture a live job's events, so retry policy belongs to the
// user, not this client.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	maxErrorBodyBytes  = 1 << 20
)

// ErrEmptyQuery is returned before any network I/O for blank queries.
var ErrEmptyQuery = errors.New("query must not be empty")

// Error is a submission failure: transport trouble or a non-2xx response.
// It is distinct from an analysis failure reported over the push channel.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("submission rejected status=%d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("submission failed: %s", e.Message)
}

// Correlation identifies the client to the job runner so push events can be
// addressed back. SessionToken is client-issued; ConnectionID is the
// server-issued fallback.
type Correlation struct {
	SessionToken string
	ConnectionID string
	UserID       string
}

type Request struct {
	Query       string
	MaxTweets   int
	Correlation Correlation
}

type Ack struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type Option func(*Submitter)

type Submitter struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, opts ...Option) *Submitter {
	s := &Submitter{
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

func WithHTTPClient(client *http.Client) Option {
	return func(s *Submitter) {
		if client != nil {
			s.httpClient = client
		}
	}
}

type submitBody struct {
	Query       string `json:"query"`
	MaxTweets   int    `json:"max_tweets"`
	Correlation string `json:"correlation"`
	SID         string `json:"sid,omitempty"`
	UID         string `json:"uid,omitempty"`
}

// Submit posts the job. The query is validated locally first; a blank query
// never reaches the network.
func (s *Submitter) Submit(ctx context.Context, req Request) (Ack, error) {
	if strings.TrimSpace(req.Query) == "" {
		return Ack{}, ErrEmptyQuery
	}

	body, err := json.Marshal(submitBody{
		Query:       req.Query,
		MaxTweets:   req.MaxTweets,
		Correlation: req.Correlation.SessionToken,
		SID:         req.Correlation.ConnectionID,
		UID:         req.Correlation.UserID,
	})
	if err != nil {
		return Ack{}, fmt.Errorf("marshal submission: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/analyze", bytes.NewReader(body))
	if err != nil {
		return Ack{}, fmt.Errorf("build submission request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return Ack{}, &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Ack{}, &Error{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	var ack Ack
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		// The job was accepted; an unreadable ack body is not a failure.
		return Ack{Status: "started"}, nil
	}
	return ack, nil
}

func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil || len(raw) == 0 {
		return "job runner returned an error"
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(raw))
}
