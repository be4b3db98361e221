package suite

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/monitor"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/session"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/transport/websocket"
)

const (
	maxWaitDuration = 30 * time.Second

	// Short probe period so a test window can span several intervals.
	testPingInterval = 100 * time.Millisecond
)

// Suite - boots the relay on an in-process HTTP server and hands out dialed
// client connections. Replaces standing up a real deployment in tests.
type Suite struct {
	*testing.T
	Logger *slog.Logger

	Store  *session.Store
	Server *httptest.Server
	URL    string
}

func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(func() {
		cancel()
	})

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	metrics := monitor.New("relay", prometheus.NewRegistry())
	store := session.NewStore(logger, metrics)

	relay := websocket.New(logger, store, websocket.Options{
		PingInterval: testPingInterval,
	})

	go relay.KeepAlive(ctx)

	server := httptest.NewServer(relay.Handler())
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	return ctx, &Suite{
		T:      t,
		Logger: logger,
		Store:  store,
		Server: server,
		URL:    wsURL,
	}
}

// Dial - connects one client to the relay; the connection is closed on test
// cleanup.
func (that *Suite) Dial() *gorilla.Conn {
	that.Helper()

	dialer := &gorilla.Dialer{HandshakeTimeout: 5 * time.Second}

	conn, resp, err := dialer.Dial(that.URL, nil)
	if err != nil {
		that.Fatalf("could not dial relay: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	that.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

// ReadMessage - reads one protocol message with a deadline so a missing
// message fails the test instead of hanging it.
func (that *Suite) ReadMessage(conn *gorilla.Conn) websocket.Message {
	that.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		that.Fatalf("could not set read deadline: %v", err)
	}

	var msg websocket.Message
	if err := conn.ReadJSON(&msg); err != nil {
		that.Fatalf("could not read message: %v", err)
	}

	return msg
}

// ReadMessageSkippingPings - like ReadMessage but discards keep-alive probes,
// which arrive interleaved with protocol traffic.
func (that *Suite) ReadMessageSkippingPings(conn *gorilla.Conn) websocket.Message {
	that.Helper()

	for {
		msg := that.ReadMessage(conn)
		if msg.Type == websocket.TypePing {
			continue
		}

		return msg
	}
}
