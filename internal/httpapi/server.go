// Package httpapi is the local dashboard surface: the browser drives the
// orchestrator through it and receives snapshot pushes over a websocket.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"convosense.local/dashboard/internal/auth"
	"convosense.local/dashboard/internal/orchestrator"
	"convosense.local/dashboard/internal/store"
	"convosense.local/dashboard/internal/submit"
	"convosense.local/dashboard/internal/view"
)

const maxRequestBytes int64 = 1 << 20

// Orchestrator is the slice of the session orchestrator the API needs.
type Orchestrator interface {
	StartQuery(ctx context.Context, query string) (string, error)
	SetFilter(ctx context.Context, filter view.Filter) error
	ShowMore(ctx context.Context) error
	Snapshot() orchestrator.Snapshot
	View() view.View
}

type server struct {
	logger  *log.Logger
	orch    Orchestrator
	reports store.Store
	auth    auth.Provider
	bridge  *SnapshotBridge
}

// NewServer wires the dashboard routes. reports, authProvider and bridge
// may be nil; the corresponding routes then answer 501.
func NewServer(logger *log.Logger, addr string, orch Orchestrator, reports store.Store, authProvider auth.Provider, bridge *SnapshotBridge) *http.Server {
	h := &server{
		logger:  logger,
		orch:    orch,
		reports: reports,
		auth:    authProvider,
		bridge:  bridge,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/v1/session", h.handleSession)
	mux.HandleFunc("/v1/analyses", h.handleAnalyses)
	mux.HandleFunc("/v1/session/filter", h.handleFilter)
	mux.HandleFunc("/v1/session/show-more", h.handleShowMore)
	mux.HandleFunc("/v1/session/view", h.handleView)
	mux.HandleFunc("/v1/session/ws", h.handleSessionWS)
	mux.HandleFunc("/v1/reports", h.handleReports)
	mux.HandleFunc("/v1/me", h.handleMe)
	mux.HandleFunc("/v1/signout", h.handleSignOut)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.orch.Snapshot())
}

type analyzeRequestBody struct {
	Query string `json:"query"`
}

func (s *server) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	defer r.Body.Close()
	var req analyzeRequestBody
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	if dec.More() {
		http.Error(w, "invalid json: trailing content", http.StatusBadRequest)
		return
	}

	sessionID, err := s.orch.StartQuery(r.Context(), req.Query)
	if err != nil {
		if errors.Is(err, submit.ErrEmptyQuery) {
			http.Error(w, "query is required", http.StatusBadRequest)
			return
		}
		s.logger.Printf("start query failed: %v", err)
		http.Error(w, "failed to start analysis", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted":   true,
		"session_id": sessionID,
	})
}

type filterRequestBody struct {
	Filter string `json:"filter"`
}

func (s *server) handleFilter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	defer r.Body.Close()
	var req filterRequestBody
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}

	filter, err := view.ParseFilter(req.Filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.orch.SetFilter(r.Context(), filter); err != nil {
		http.Error(w, "failed to set filter", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.orch.Snapshot())
}

func (s *server) handleShowMore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.orch.ShowMore(r.Context()); err != nil {
		http.Error(w, "failed to expand view", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.orch.Snapshot())
}

func (s *server) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	if query.Get("filter") == "" && query.Get("page_size") == "" && query.Get("show_all") == "" {
		writeJSON(w, http.StatusOK, s.orch.View())
		return
	}

	snapshot := s.orch.Snapshot()
	filter := snapshot.Filter
	if raw := query.Get("filter"); raw != "" {
		parsed, err := view.ParseFilter(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter = parsed
	}
	pageSize := snapshot.PageSize
	if raw := query.Get("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "page_size must be a positive integer", http.StatusBadRequest)
			return
		}
		pageSize = parsed
	}
	showAll := snapshot.ShowAll
	if raw := query.Get("show_all"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "show_all must be a boolean", http.StatusBadRequest)
			return
		}
		showAll = parsed
	}

	writeJSON(w, http.StatusOK, view.Derive(snapshot.Session.Result, filter, pageSize, showAll))
}

func (s *server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.reports == nil {
		http.Error(w, "report store not configured", http.StatusNotImplemented)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	userID := ""
	if s.auth != nil {
		if user, err := s.auth.CurrentUser(r.Context()); err == nil && user != nil {
			userID = user.UID
		}
	}

	reports, err := s.reports.ListReports(r.Context(), userID, limit)
	if err != nil {
		s.logger.Printf("list reports failed: %v", err)
		http.Error(w, "failed to list reports", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.auth == nil {
		http.Error(w, "auth not configured", http.StatusNotImplemented)
		return
	}

	user, err := s.auth.CurrentUser(r.Context())
	if err != nil {
		if errors.Is(err, auth.ErrNotSignedIn) {
			http.Error(w, "not signed in", http.StatusUnauthorized)
			return
		}
		s.logger.Printf("identity lookup failed: %v", err)
		http.Error(w, "identity lookup failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.auth == nil {
		http.Error(w, "auth not configured", http.StatusNotImplemented)
		return
	}

	if err := s.auth.SignOut(r.Context()); err != nil {
		s.logger.Printf("sign out failed: %v", err)
		http.Error(w, "sign out failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"signed_out": true})
}

func (s *server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.bridge == nil {
		http.Error(w, "snapshot push not configured", http.StatusNotImplemented)
		return
	}
	s.bridge.serve(w, r, s.logger, s.orch.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func isWebSocketOriginAllowed(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	parsedOrigin, err := url.Parse(origin)
	if err != nil || strings.TrimSpace(parsedOrigin.Host) == "" {
		return false
	}
	return strings.EqualFold(parsedOrigin.Host, r.Host)
}
