package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

type EventKind string

const (
	EventKindConnected EventKind = "connected"
	EventKindProgress  EventKind = "analysis_update"
	EventKindComplete  EventKind = "analysis_complete"
	EventKindFailed    EventKind = "analysis_error"
)

// Envelope is the raw wire shape of every push event.
type Envelope struct {
	Event   EventKind       `json:"event"`
	Session string          `json:"session,omitempty"`
	Data    json.RawMessage `json:"data"`
}

func (e Envelope) DecodeData(v any) error {
	return json.Unmarshal(e.Data, v)
}

type ConnectedPayload struct {
	SID string `json:"sid"`
}

type ProgressPayload struct {
	Message  string `json:"message"`
	Progress int    `json:"progress"`
}

type FailedPayload struct {
	Error string `json:"error"`
}

// Event is the typed form handed to the orchestrator. Exactly one of the
// payload fields matching Kind is populated.
type Event struct {
	Kind     EventKind
	Session  string
	Progress ProgressPayload
	Result   *Result
	Reason   string
}

// ParseEvent validates and narrows a raw envelope into a typed Event.
// Unknown kinds and undecodable payloads are rejected here so the
// orchestrator only ever sees the closed event set.
func ParseEvent(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("decode event envelope: %w", err)
	}
	if strings.TrimSpace(string(env.Event)) == "" {
		return Event{}, fmt.Errorf("event kind is required")
	}

	event := Event{Kind: env.Event, Session: strings.TrimSpace(env.Session)}
	switch env.Event {
	case EventKindConnected:
		var payload ConnectedPayload
		if err := env.DecodeData(&payload); err != nil {
			return Event{}, fmt.Errorf("decode connected payload: %w", err)
		}
		if strings.TrimSpace(payload.SID) == "" {
			return Event{}, fmt.Errorf("connected payload missing sid")
		}
		event.Session = payload.SID
	case EventKindProgress:
		var payload ProgressPayload
		if err := env.DecodeData(&payload); err != nil {
			return Event{}, fmt.Errorf("decode progress payload: %w", err)
		}
		if payload.Progress < 0 || payload.Progress > 100 {
			return Event{}, fmt.Errorf("progress %d out of range", payload.Progress)
		}
		event.Progress = payload
	case EventKindComplete:
		var result Result
		if err := env.DecodeData(&result); err != nil {
			return Event{}, fmt.Errorf("decode result payload: %w", err)
		}
		result.Normalize()
		if err := result.Validate(); err != nil {
			return Event{}, fmt.Errorf("invalid result payload: %w", err)
		}
		event.Result = &result
	case EventKindFailed:
		var payload FailedPayload
		if err := env.DecodeData(&payload); err != nil {
			return Event{}, fmt.Errorf("decode error payload: %w", err)
		}
		if strings.TrimSpace(payload.Error) == "" {
			payload.Error = "analysis failed"
		}
		event.Reason = payload.Error
	default:
		return Event{}, fmt.Errorf("unsupported event kind %q", env.Event)
	}

	return event, nil
}
