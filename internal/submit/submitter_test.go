package submit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestSubmitCarriesCorrelation(t *testing.T) {
	var got submitBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/analyze" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Ack{Status: "started", Message: "Analysis started for: #AI"})
	}))
	defer server.Close()

	s := New(server.URL)
	ack, err := s.Submit(context.Background(), Request{
		Query:     "#AI",
		MaxTweets: 20,
		Correlation: Correlation{
			SessionToken: "sess_1",
			ConnectionID: "conn_1",
			UserID:       "user_1",
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ack.Status != "started" {
		t.Fatalf("unexpected ack %+v", ack)
	}
	if got.Query != "#AI" || got.MaxTweets != 20 {
		t.Fatalf("unexpected body %+v", got)
	}
	if got.Correlation != "sess_1" || got.SID != "conn_1" || got.UID != "user_1" {
		t.Fatalf("expected correlation fields, got %+v", got)
	}
}

func TestSubmitRejectsEmptyQueryWithoutNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	s := New(server.URL)
	if _, err := s.Submit(context.Background(), Request{Query: "   "}); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no network call, got %d", calls.Load())
	}
}

func TestSubmitSurfacesRunnerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Query is required"}`))
	}))
	defer server.Close()

	s := New(server.URL)
	_, err := s.Submit(context.Background(), Request{Query: "#AI"})
	var subErr *Error
	if !errors.As(err, &subErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if subErr.StatusCode != http.StatusBadRequest || subErr.Message != "Query is required" {
		t.Fatalf("unexpected error %+v", subErr)
	}
}

func TestSubmitSurfacesTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // refuse connections

	s := New(server.URL)
	_, err := s.Submit(context.Background(), Request{Query: "#AI"})
	var subErr *Error
	if !errors.As(err, &subErr) {
		t.Fatalf("expected *Error for transport failure, got %v", err)
	}
	if subErr.StatusCode != 0 {
		t.Fatalf("transport failure must not carry a status code, got %d", subErr.StatusCode)
	}
}
