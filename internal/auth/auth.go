// Package auth is the boundary to the identity service. The rest of the
// program only ever sees a *User; session and token handling stay here.
package auth

import (
	"context"
	"errors"
	"sync"
)

// ErrNotSignedIn is returned when no user session exists.
var ErrNotSignedIn = errors.New("not signed in")

type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Provider exposes the current identity. CurrentUser returns ErrNotSignedIn
// rather than a nil user when nobody is signed in. OnChange callbacks fire
// with nil on sign-out.
type Provider interface {
	CurrentUser(ctx context.Context) (*User, error)
	SignOut(ctx context.Context) error
	OnChange(fn func(*User))
}

// Anonymous is the provider used when no auth service is configured. It
// reports a stable pseudo-user so report scoping still works.
type Anonymous struct {
	mu        sync.Mutex
	user      *User
	listeners []func(*User)
}

func NewAnonymous() *Anonymous {
	return &Anonymous{user: &User{UID: "anonymous"}}
}

func (a *Anonymous) CurrentUser(context.Context) (*User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return nil, ErrNotSignedIn
	}
	copied := *a.user
	return &copied, nil
}

func (a *Anonymous) SignOut(context.Context) error {
	a.mu.Lock()
	a.user = nil
	listeners := append([]func(*User){}, a.listeners...)
	a.mu.Unlock()
	for _, fn := range listeners {
		fn(nil)
	}
	return nil
}

func (a *Anonymous) OnChange(fn func(*User)) {
	if fn == nil {
		return
	}
	a.mu.Lock()
	a.listeners = append(a.listeners, fn)
	a.mu.Unlock()
}
