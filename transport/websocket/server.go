package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/session"
)

const defaultPingInterval = 30 * time.Second

// Options - relay server tuning knobs.
type Options struct {
	PingInterval time.Duration // keep-alive probe period, defaults to 30s

	// Per-connection inbound message rate limit; disabled when RatePerSecond
	// is zero.
	RatePerSecond float64
	RateBurst     int
}

// Server - the relay: upgrades connections, dispatches inbound messages by
// their type tag onto the session store, and broadcasts keep-alive probes.
type Server struct {
	logger *slog.Logger
	store  *session.Store
	opts   Options

	upgrader websocket.Upgrader
	handlers map[string]func(conn *connection, msg *Message) error

	connsMu sync.Mutex
	conns   map[*connection]struct{}
}

func New(logger *slog.Logger, store *session.Store, opts Options) *Server {
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}

	server := &Server{
		logger: logger.With("component", "relay"),
		store:  store,
		opts:   opts,

		upgrader: websocket.Upgrader{
			// Anonymous matchmaking from any origin.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		handlers: make(map[string]func(*connection, *Message) error),
		conns:    make(map[*connection]struct{}),
	}

	server.handlers[TypeFindMatch] = server.handleFindMatch
	server.handlers[TypeGameMove] = server.handleGameMove
	server.handlers[TypeGameEnded] = server.handleGameEnded
	server.handlers[TypePong] = server.handlePong

	return server
}

// Handler - returns the HTTP handler exposing the /ws endpoint.
func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.serveWS)

	return mux
}

// Start - serves the relay until ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go that.KeepAlive(ctx)

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// KeepAlive - sends a ping probe to every open connection at a fixed
// interval. The probe defeats idle-connection timeouts at lower network
// layers; the pong reply is not required for liveness.
func (that *Server) KeepAlive(ctx context.Context) {
	ticker := time.NewTicker(that.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, conn := range that.openConnections() {
				if err := conn.Send(&Message{Type: TypePing}); err != nil {
					that.logger.Debug("failed to send ping", "error", err)
				}
			}
		}
	}
}

// serveWS - upgrades one client and runs its read loop until the socket
// closes or errors; cleanup is immediate and synchronous either way.
func (that *Server) serveWS(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveWS")

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	conn := newConnection(ws)

	that.connsMu.Lock()
	that.conns[conn] = struct{}{}
	that.connsMu.Unlock()

	log.Info("connection established", "remote", ws.RemoteAddr())

	if err = conn.Send(&Message{Type: TypeConnected, Message: "Successfully connected to server"}); err != nil {
		log.Error("failed to send greeting", "error", err)
	}

	that.readLoop(conn)
	that.disconnect(conn)
}

func (that *Server) readLoop(conn *connection) {
	log := that.logger.With("method", "readLoop")

	var limiter *rate.Limiter
	if that.opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(that.opts.RatePerSecond), that.opts.RateBurst)
	}

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			log.Debug("connection read ended", "error", err)
			return
		}

		if limiter != nil && !limiter.Allow() {
			log.Warn("rate limit exceeded, dropping message")
			continue
		}

		var msg Message
		if err = json.Unmarshal(data, &msg); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			that.sendError(conn, "Failed to process message")
			continue
		}

		handler, ok := that.handlers[msg.Type]
		if !ok {
			log.Error("unknown message type", "type", msg.Type)
			that.sendError(conn, "Failed to process message")
			continue
		}

		if err = handler(conn, &msg); err != nil {
			log.Error("error processing message", "type", msg.Type, "error", err)
		}
	}
}

// disconnect - tears down everything the connection participates in and
// notifies its paired opponent, if any.
func (that *Server) disconnect(conn *connection) {
	log := that.logger.With("method", "disconnect")

	conn.close()

	that.connsMu.Lock()
	delete(that.conns, conn)
	that.connsMu.Unlock()

	for _, opponent := range that.store.Disconnect(conn) {
		peer, ok := opponent.(*connection)
		if !ok {
			continue
		}

		if err := peer.Send(&Message{Type: TypeOpponentDisconnected}); err != nil {
			log.Debug("failed to notify opponent", "error", err)
		}
	}

	log.Info("connection closed")
}

func (that *Server) openConnections() []*connection {
	that.connsMu.Lock()
	defer that.connsMu.Unlock()

	conns := make([]*connection, 0, len(that.conns))
	for conn := range that.conns {
		if conn.IsOpen() {
			conns = append(conns, conn)
		}
	}

	return conns
}

func (that *Server) sendError(conn *connection, errorMsg string) {
	if err := conn.Send(&Message{Type: TypeError, Message: errorMsg}); err != nil {
		that.logger.Debug("failed to send error response", "error", err)
	}
}
