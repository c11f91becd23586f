package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPProvider talks to the identity service over its REST surface. The
// current user is cached after the first lookup; SignOut invalidates it.
type HTTPProvider struct {
	baseURL    string
	token      string
	httpClient *http.Client

	mu        sync.Mutex
	cached    *User
	fetched   bool
	listeners []func(*User)
}

type HTTPOption func(*HTTPProvider)

func WithHTTPClient(client *http.Client) HTTPOption {
	return func(p *HTTPProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

func NewHTTPProvider(baseURL, token string, opts ...HTTPOption) *HTTPProvider {
	p := &HTTPProvider{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *HTTPProvider) CurrentUser(ctx context.Context) (*User, error) {
	p.mu.Lock()
	if p.fetched {
		defer p.mu.Unlock()
		if p.cached == nil {
			return nil, ErrNotSignedIn
		}
		copied := *p.cached
		return &copied, nil
	}
	p.mu.Unlock()

	user, err := p.fetchUser(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cached = user
	p.fetched = true
	p.mu.Unlock()

	if user == nil {
		return nil, ErrNotSignedIn
	}
	copied := *user
	return &copied, nil
}

func (p *HTTPProvider) fetchUser(ctx context.Context) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/me", nil)
	if err != nil {
		return nil, fmt.Errorf("build identity request: %w", err)
	}
	p.authorize(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity lookup status=%d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode identity response: %w", err)
	}
	if strings.TrimSpace(user.UID) == "" {
		return nil, nil
	}
	return &user, nil
}

func (p *HTTPProvider) SignOut(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/signout", bytes.NewReader([]byte("{}")))
	if err != nil {
		return fmt.Errorf("build signout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	p.authorize(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("signout: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("signout status=%d", resp.StatusCode)
	}

	p.mu.Lock()
	p.cached = nil
	p.fetched = true
	listeners := append([]func(*User){}, p.listeners...)
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(nil)
	}
	return nil
}

func (p *HTTPProvider) OnChange(fn func(*User)) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

func (p *HTTPProvider) authorize(req *http.Request) {
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
}
