package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	protocol "github.com/rocketscienceinc/ultimate-tictactoe-backend/transport/websocket"
)

const (
	defaultReconnectDelay = 3 * time.Second
	defaultMaxReconnects  = 10

	handshakeTimeout = 5 * time.Second
)

// RelayOptions - relay transport tuning knobs.
type RelayOptions struct {
	ReconnectDelay time.Duration // fixed backoff between reconnect attempts
	MaxReconnects  int           // reconnect attempts before giving up
}

// RelayTransport - synchronizes game state through the matchmaking relay.
// On transport loss it retries with a fixed backoff, bounded so a long-lived
// client process cannot leak into an endless retry loop.
type RelayTransport struct {
	logger *slog.Logger
	url    string
	events transportEvents
	opts   RelayOptions

	mu     sync.Mutex
	ws     *websocket.Conn
	roomID string
	closed bool
}

func connectRelay(logger *slog.Logger, url string, events transportEvents, opts RelayOptions) (*RelayTransport, error) {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = defaultMaxReconnects
	}

	transport := &RelayTransport{
		logger: logger.With("transport", "relay"),
		url:    url,
		events: events,
		opts:   opts,
	}

	if err := transport.dial(); err != nil {
		return nil, err
	}

	go transport.readLoop()

	return transport, nil
}

// SendState - proposes the new state to the relay for forwarding to the
// peer. Requires an active room.
func (that *RelayTransport) SendState(game *entity.Game) error {
	that.mu.Lock()
	ws := that.ws
	roomID := that.roomID
	that.mu.Unlock()

	if ws == nil || roomID == "" {
		return apperror.ErrNotConnected
	}

	state, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to marshal game state: %w", err)
	}

	msg := &protocol.Message{
		Type:      protocol.TypeGameMove,
		RoomID:    roomID,
		GameState: state,
	}

	if err = that.write(msg); err != nil {
		return fmt.Errorf("failed to send game move: %w", err)
	}

	return nil
}

// Close - signals game end for the active room, then closes the socket and
// stops any reconnect attempts. The game-end write happens under the write
// mutex; the read loop may be writing a pong concurrently and the socket
// permits only one writer at a time.
func (that *RelayTransport) Close() error {
	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		return nil
	}

	that.closed = true
	ws := that.ws
	roomID := that.roomID
	that.roomID = ""

	if ws != nil && roomID != "" {
		end := &protocol.Message{Type: protocol.TypeGameEnded, RoomID: roomID}
		if err := ws.WriteJSON(end); err != nil {
			that.logger.Debug("failed to send game end", "error", err)
		}
	}
	that.mu.Unlock()

	if ws == nil {
		return nil
	}

	if err := ws.Close(); err != nil {
		return fmt.Errorf("failed to close socket: %w", err)
	}

	return nil
}

func (that *RelayTransport) dial() error {
	dialer := &websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	ws, resp, err := dialer.Dial(that.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial relay: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	that.mu.Lock()
	that.ws = ws
	that.mu.Unlock()

	findMatch := &protocol.Message{Type: protocol.TypeFindMatch}
	if err = that.write(findMatch); err != nil {
		return fmt.Errorf("failed to request match: %w", err)
	}

	return nil
}

func (that *RelayTransport) readLoop() {
	log := that.logger.With("method", "readLoop")

	for {
		that.mu.Lock()
		ws := that.ws
		closed := that.closed
		that.mu.Unlock()

		if closed || ws == nil {
			return
		}

		var msg protocol.Message
		if err := ws.ReadJSON(&msg); err != nil {
			if that.isClosed() {
				return
			}

			log.Warn("connection lost, reconnecting", "error", err)

			if !that.reconnect() {
				that.events.onTransportLost()
				return
			}

			continue
		}

		that.dispatch(&msg)
	}
}

func (that *RelayTransport) dispatch(msg *protocol.Message) {
	log := that.logger.With("method", "dispatch")

	switch msg.Type {
	case protocol.TypeConnected:
		log.Info("relay connection confirmed")

	case protocol.TypeWaitingForOpponent:
		that.events.onWaiting()

	case protocol.TypeGameStart:
		that.mu.Lock()
		that.roomID = msg.RoomID
		that.mu.Unlock()

		that.events.onGameStart(msg.Symbol)

	case protocol.TypeGameUpdate:
		var game entity.Game
		if err := json.Unmarshal(msg.GameState, &game); err != nil {
			log.Error("failed to unmarshal game state", "error", err)
			return
		}

		that.events.onStateReceived(&game)

	case protocol.TypeOpponentDisconnected:
		that.events.onPeerClosed()

	case protocol.TypePing:
		if err := that.write(&protocol.Message{Type: protocol.TypePong}); err != nil {
			log.Debug("failed to send pong", "error", err)
		}

	case protocol.TypeError:
		log.Warn("relay reported error", "message", msg.Message)

	default:
		log.Debug("ignoring unknown message", "type", msg.Type)
	}
}

// reconnect - bounded fixed-backoff reconnect; returns false once the
// attempts are exhausted or the transport was closed deliberately.
func (that *RelayTransport) reconnect() bool {
	log := that.logger.With("method", "reconnect")

	for attempt := 1; attempt <= that.opts.MaxReconnects; attempt++ {
		time.Sleep(that.opts.ReconnectDelay)

		if that.isClosed() {
			return false
		}

		if err := that.dial(); err != nil {
			log.Warn("reconnect attempt failed", "attempt", attempt, "error", err)
			continue
		}

		log.Info("reconnected to relay", "attempt", attempt)

		return true
	}

	log.Error("reconnect attempts exhausted", "attempts", that.opts.MaxReconnects)

	return false
}

func (that *RelayTransport) write(msg *protocol.Message) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.ws == nil {
		return apperror.ErrNotConnected
	}

	if err := that.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *RelayTransport) isClosed() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.closed
}
