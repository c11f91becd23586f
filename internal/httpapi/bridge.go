package httpapi

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"convosense.local/dashboard/internal/orchestrator"
)

const wsWriteTimeout = 5 * time.Second

type wsMessage struct {
	Event string                `json:"event"`
	Data  orchestrator.Snapshot `json:"data"`
}

// SnapshotBridge forwards orchestrator snapshots to connected browsers. It
// plugs into the notifier as a subscriber; each connected socket gets every
// snapshot change plus the current one on connect.
type SnapshotBridge struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewSnapshotBridge() *SnapshotBridge {
	return &SnapshotBridge{conns: make(map[*websocket.Conn]struct{})}
}

func (b *SnapshotBridge) Name() string {
	return "browser"
}

// Handle broadcasts the snapshot. Sockets that fail to accept the write are
// dropped; the browser reconnects on its own.
func (b *SnapshotBridge) Handle(_ context.Context, snapshot orchestrator.Snapshot) error {
	message := wsMessage{Event: "snapshot", Data: snapshot}

	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.conns {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(message); err != nil {
			delete(b.conns, conn)
			_ = conn.Close()
		}
	}
	return nil
}

// ClientCount reports how many browsers are attached.
func (b *SnapshotBridge) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

func (b *SnapshotBridge) serve(w http.ResponseWriter, r *http.Request, logger *log.Logger, current orchestrator.Snapshot) {
	upgrader := websocket.Upgrader{CheckOrigin: isWebSocketOriginAllowed}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Printf("snapshot ws upgrade failed: %v", err)
		return
	}

	b.mu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(wsMessage{Event: "snapshot", Data: current}); err != nil {
		b.mu.Unlock()
		_ = conn.Close()
		return
	}
	b.conns[conn] = struct{}{}
	b.mu.Unlock()

	// Reads only serve to notice the peer going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	b.mu.Lock()
	delete(b.conns, conn)
	b.mu.Unlock()
	_ = conn.Close()
}

// Close drops every attached browser.
func (b *SnapshotBridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.conns {
		_ = conn.Close()
		delete(b.conns, conn)
	}
}
