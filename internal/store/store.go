// Package store persists completed analysis reports. Persistence is a side
// channel: a save failure never alters the session that produced the report.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"convosense.local/dashboard/internal/analysis"
	"convosense.local/dashboard/internal/ids"
)

var ErrNotFound = errors.New("report not found")

// Report is the durable record of one completed analysis.
type Report struct {
	ID             string           `json:"id"`
	SessionID      string           `json:"session_id"`
	UserID         string           `json:"user_id,omitempty"`
	Query          string           `json:"query"`
	TweetsAnalyzed int              `json:"tweets_analyzed"`
	Result         *analysis.Result `json:"result,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// NewReport builds the record for a freshly completed session.
func NewReport(sessionID, userID string, result *analysis.Result) Report {
	report := Report{
		ID:        ids.New(),
		SessionID: sessionID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if result != nil {
		report.Query = result.Query
		report.TweetsAnalyzed = result.TweetsAnalyzed
		report.Result = result
	}
	return report
}

// Store is the report persistence contract. ListReports returns newest
// first; a non-empty userID scopes the listing to that user.
type Store interface {
	SaveReport(ctx context.Context, report Report) error
	GetReport(ctx context.Context, id string) (Report, error)
	ListReports(ctx context.Context, userID string, limit int) ([]Report, error)
	Close() error
}

func marshalResult(result *analysis.Result) (string, error) {
	if result == nil {
		return "", nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func unmarshalResult(raw string) (*analysis.Result, error) {
	if raw == "" {
		return nil, nil
	}
	var result analysis.Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
