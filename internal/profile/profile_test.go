package profile

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"convosense.local/dashboard/internal/auth"
)

func testLogger() *log.Logger {
	return log.New(os.Stdout, "", 0)
}

func TestSyncPostsUser(t *testing.T) {
	var got userBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/user" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	s := NewSyncer(testLogger(), server.URL)
	s.Sync(context.Background(), &auth.User{UID: "user_1", Email: "u@example.com", DisplayName: "U"})

	if got.UID != "user_1" || got.Email != "u@example.com" || got.DisplayName != "U" {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestSyncSkipsNilAndBlankUsers(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	s := NewSyncer(testLogger(), server.URL)
	s.Sync(context.Background(), nil)
	s.Sync(context.Background(), &auth.User{UID: "   "})

	if calls.Load() != 0 {
		t.Fatalf("expected no network calls, got %d", calls.Load())
	}
}

func TestSyncSwallowsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s := NewSyncer(testLogger(), server.URL)
	// Must not panic or propagate anything.
	s.Sync(context.Background(), &auth.User{UID: "user_1"})
}
