package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	protocol "github.com/rocketscienceinc/ultimate-tictactoe-backend/transport/websocket"
)

// DirectOptions - direct peer channel tuning knobs.
type DirectOptions struct {
	ListenAddr string // host listen address, defaults to an ephemeral loopback port
}

// DirectTransport - a peer-to-peer channel with no relay and no room
// concept: the host listens, the joiner dials the address resolved from the
// broker code, and both exchange game_move payloads directly.
type DirectTransport struct {
	logger *slog.Logger
	events transportEvents

	mu       sync.Mutex
	ws       *websocket.Conn
	listener net.Listener
	closed   bool

	upgrader websocket.Upgrader
}

func hostDirect(logger *slog.Logger, broker Broker, events transportEvents, opts DirectOptions) (*DirectTransport, string, error) {
	if opts.ListenAddr == "" {
		opts.ListenAddr = "127.0.0.1:0"
	}

	listener, err := net.Listen("tcp", opts.ListenAddr)
	if err != nil {
		return nil, "", fmt.Errorf("failed to listen: %w", err)
	}

	code, err := broker.Register(listener.Addr().String())
	if err != nil {
		_ = listener.Close()
		return nil, "", fmt.Errorf("failed to register with broker: %w", err)
	}

	transport := &DirectTransport{
		logger:   logger.With("transport", "direct"),
		events:   events,
		listener: listener,

		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}

	srv := &http.Server{Handler: http.HandlerFunc(transport.acceptPeer)}
	go func() {
		_ = srv.Serve(listener)
	}()

	events.onWaiting()

	return transport, code, nil
}

func joinDirect(logger *slog.Logger, broker Broker, code string, events transportEvents) (*DirectTransport, error) {
	addr, err := broker.Resolve(code)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve game code: %w", err)
	}

	dialer := &websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	ws, resp, err := dialer.Dial("ws://"+addr+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial host: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	transport := &DirectTransport{
		logger: logger.With("transport", "direct"),
		events: events,
		ws:     ws,
	}

	go transport.readLoop(ws)

	// The joiner takes O; the host moved its mark to X when the channel opened.
	events.onGameStart(entity.PlayerO)

	return transport, nil
}

// acceptPeer - upgrades the first inbound peer; once a connection is
// established any further peer is rejected.
func (that *DirectTransport) acceptPeer(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "acceptPeer")

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	that.mu.Lock()
	if that.ws != nil || that.closed {
		that.mu.Unlock()
		_ = ws.Close()
		return
	}
	that.ws = ws
	that.mu.Unlock()

	log.Info("peer connected", "remote", ws.RemoteAddr())

	go that.readLoop(ws)

	that.events.onGameStart(entity.PlayerX)
}

// SendState - sends the new state straight to the peer.
func (that *DirectTransport) SendState(game *entity.Game) error {
	state, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to marshal game state: %w", err)
	}

	msg := &protocol.Message{
		Type:      protocol.TypeGameMove,
		GameState: state,
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.ws == nil {
		return apperror.ErrNotConnected
	}

	if err = that.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// Close - tears the channel down; the peer observes a plain close, there is
// no game-end signal in direct mode.
func (that *DirectTransport) Close() error {
	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		return nil
	}

	that.closed = true
	ws := that.ws
	that.ws = nil
	listener := that.listener
	that.listener = nil
	that.mu.Unlock()

	if ws != nil {
		_ = ws.Close()
	}

	if listener != nil {
		_ = listener.Close()
	}

	return nil
}

func (that *DirectTransport) readLoop(ws *websocket.Conn) {
	log := that.logger.With("method", "readLoop")

	for {
		var msg protocol.Message
		if err := ws.ReadJSON(&msg); err != nil {
			that.mu.Lock()
			closed := that.closed
			that.mu.Unlock()

			if !closed {
				log.Info("peer channel closed", "error", err)
				that.events.onPeerClosed()
			}

			return
		}

		if msg.Type != protocol.TypeGameMove {
			log.Debug("ignoring unknown message", "type", msg.Type)
			continue
		}

		var game entity.Game
		if err := json.Unmarshal(msg.GameState, &game); err != nil {
			log.Error("failed to unmarshal game state", "error", err)
			continue
		}

		that.events.onStateReceived(&game)
	}
}
