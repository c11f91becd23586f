package notify

import (
	"context"
	"log"

	"convosense.local/dashboard/internal/orchestrator"
)

// LoggingSubscriber writes one line per snapshot change.
type LoggingSubscriber struct {
	logger *log.Logger
}

func NewLoggingSubscriber(logger *log.Logger) *LoggingSubscriber {
	return &LoggingSubscriber{logger: logger}
}

func (s *LoggingSubscriber) Name() string {
	return "logging"
}

func (s *LoggingSubscriber) Handle(_ context.Context, snapshot orchestrator.Snapshot) error {
	s.logger.Printf("session_id=%s status=%s progress=%d filter=%s connected=%t",
		snapshot.Session.ID, snapshot.Session.Status, snapshot.Session.Progress,
		snapshot.Filter, snapshot.Connected)
	return nil
}
