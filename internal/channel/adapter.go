// Package channel owns the single persistent websocket connection to the
// analysis engine's push endpoint. It decodes inbound frames into the closed
// event set defined by the analysis package and hands them upward on one
// stream; the orchestrator never touches the socket.
package channel

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"convosense.local/dashboard/internal/analysis"
)

const dialTimeout = 10 * time.Second

type Config struct {
	URL        string
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinBackoff <= 0 {
		c.MinBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff < c.MinBackoff {
		c.MaxBackoff = 30 * time.Second
	}
	return c
}

// Adapter maintains exactly one live connection per instance. Transport loss
// triggers reconnection with capped exponential backoff; it never fails the
// caller's session on its own.
type Adapter struct {
	cfg    Config
	logger *log.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	connID    string
	connected bool
	started   bool
	closed    bool

	events    chan analysis.Event
	errs      chan error
	done      chan struct{}
	closeOnce sync.Once
}

func New(cfg Config, logger *log.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg.withDefaults(),
		logger: logger,
		events: make(chan analysis.Event, 64),
		errs:   make(chan error, 16),
		done:   make(chan struct{}),
	}
}

// Dial starts the connection machinery. The background reconnect loop runs
// even when the first attempt fails: the error is returned so startup can
// log it, and the adapter keeps retrying with backoff until Close. Calling
// Dial on a started adapter is a no-op.
func (a *Adapter) Dial(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return fmt.Errorf("channel adapter is closed")
	}
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = true
	a.mu.Unlock()

	conn, err := a.dial(ctx)
	if err != nil {
		go a.run()
		return err
	}

	a.mu.Lock()
	a.conn = conn
	a.connected = true
	a.mu.Unlock()

	go a.run()
	return nil
}

func (a *Adapter) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, a.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial push channel: %w", err)
	}
	return conn, nil
}

// Events is the typed inbound stream: progress, complete and failed only.
// The connected hello is consumed internally to track the connection id.
func (a *Adapter) Events() <-chan analysis.Event {
	return a.events
}

// Errors surfaces transport-level problems. These are recoverable; the
// adapter keeps reconnecting until Close.
func (a *Adapter) Errors() <-chan error {
	return a.errs
}

func (a *Adapter) Done() <-chan struct{} {
	return a.done
}

// ConnectionID returns the server-issued id from the most recent connected
// hello, used as correlation fallback for events without a session token.
func (a *Adapter) ConnectionID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.connID
}

func (a *Adapter) Connected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.connected
}

// Close is idempotent and safe to call at any time, including before Dial.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.connected = false
		conn := a.conn
		a.conn = nil
		a.mu.Unlock()

		if conn != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(500*time.Millisecond))
			_ = conn.Close()
		}
		close(a.done)
	})
	return nil
}

func (a *Adapter) run() {
	for {
		a.readLoop()

		a.mu.Lock()
		if a.closed {
			a.mu.Unlock()
			return
		}
		a.connected = false
		if a.conn != nil {
			_ = a.conn.Close()
			a.conn = nil
		}
		a.mu.Unlock()

		conn, ok := a.reconnect()
		if !ok {
			return
		}

		a.mu.Lock()
		if a.closed {
			a.mu.Unlock()
			_ = conn.Close()
			return
		}
		a.conn = conn
		a.connected = true
		a.mu.Unlock()
		a.logger.Printf("push channel reconnected url=%s", a.cfg.URL)
	}
}

func (a *Adapter) readLoop() {
	for {
		a.mu.RLock()
		conn := a.conn
		closed := a.closed
		a.mu.RUnlock()
		if conn == nil || closed {
			return
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			if closedByPeer(err) || a.isClosed() {
				return
			}
			a.pushErr(fmt.Errorf("read push channel: %w", err))
			return
		}

		event, err := analysis.ParseEvent(payload)
		if err != nil {
			a.logger.Printf("dropping malformed push event err=%v", err)
			continue
		}

		if event.Kind == analysis.EventKindConnected {
			a.mu.Lock()
			a.connID = event.Session
			a.mu.Unlock()
			a.logger.Printf("push channel connected connection_id=%s", event.Session)
			continue
		}

		select {
		case a.events <- event:
		case <-a.done:
			return
		}
	}
}

func (a *Adapter) reconnect() (*websocket.Conn, bool) {
	backoff := a.cfg.MinBackoff
	for {
		select {
		case <-a.done:
			return nil, false
		case <-time.After(backoff):
		}

		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		conn, err := a.dial(ctx)
		cancel()
		if err == nil {
			return conn, true
		}

		a.logger.Printf("push channel reconnect failed backoff=%s err=%v", backoff, err)
		backoff *= 2
		if backoff > a.cfg.MaxBackoff {
			backoff = a.cfg.MaxBackoff
		}
	}
}

func (a *Adapter) isClosed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.closed
}

func (a *Adapter) pushErr(err error) {
	select {
	case a.errs <- err:
	default:
	}
}

func closedByPeer(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
