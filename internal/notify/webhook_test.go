package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"convosense.local/dashboard/internal/orchestrator"
)

func TestWebhookHandlePostsSnapshot(t *testing.T) {
	var (
		gotContentType string
		gotBody        []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		gotContentType = r.Header.Get("Content-Type")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		gotBody = body
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	snapshot := testSnapshot("sess_1", orchestrator.StatusCompleted)
	sub := NewWebhookSubscriber("webhook-test", server.URL+"/hooks")
	if err := sub.Handle(context.Background(), snapshot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotContentType != "application/json" {
		t.Fatalf("unexpected content type %q", gotContentType)
	}
	var decoded orchestrator.Snapshot
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("decode posted body: %v", err)
	}
	if decoded.Session.ID != "sess_1" {
		t.Fatalf("unexpected posted snapshot %+v", decoded)
	}
}

func TestWebhookHandleSurfacesErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream sad"))
	}))
	defer server.Close()

	sub := NewWebhookSubscriber("webhook-test", server.URL)
	err := sub.Handle(context.Background(), testSnapshot("sess_1", orchestrator.StatusFailed))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "status=502") || !strings.Contains(err.Error(), "upstream sad") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestWebhookFilterSkipsNonTerminal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	sub := NewWebhookSubscriber("webhook-test", server.URL, WithSnapshotFilter(TerminalOnly))
	if err := sub.Handle(context.Background(), testSnapshot("sess_1", orchestrator.StatusStreaming)); err != nil {
		t.Fatalf("filtered handle must not error: %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no webhook call for non-terminal snapshot, got %d", calls.Load())
	}
}
