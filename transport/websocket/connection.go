package websocket

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
)

// connection - wraps one client socket. Writes are serialized by a mutex
// because the keep-alive loop and the message handlers share the socket.
type connection struct {
	mu   sync.Mutex
	ws   *websocket.Conn
	open bool
}

func newConnection(ws *websocket.Conn) *connection {
	return &connection{
		ws:   ws,
		open: true,
	}
}

// Send - writes one protocol message as JSON. Sending on a closed connection
// is an error the callers treat as a silently skipped recipient.
func (that *connection) Send(msg *Message) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.open {
		return apperror.ErrNotConnected
	}

	if err := that.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// IsOpen - reports whether the transport is still open.
func (that *connection) IsOpen() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.open
}

func (that *connection) close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.open {
		return
	}

	that.open = false
	_ = that.ws.Close()
}
