package websocket_test

import (
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/testing/suite"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/transport/websocket"
)

func TestRelay_Handshake(t *testing.T) {
	_, s := suite.New(t)

	t.Run("Server greets every new connection", func(t *testing.T) {
		// When: a client connects
		conn := s.Dial()

		// Then: the first message is the connection confirmation
		msg := s.ReadMessage(conn)
		assert.Equal(t, websocket.TypeConnected, msg.Type)
		assert.NotEmpty(t, msg.Message)
	})
}

func TestRelay_Matchmaking(t *testing.T) {
	_, s := suite.New(t)

	// Given: two connected clients past their greeting
	connA := s.Dial()
	connB := s.Dial()
	require.Equal(t, websocket.TypeConnected, s.ReadMessage(connA).Type)
	require.Equal(t, websocket.TypeConnected, s.ReadMessage(connB).Type)

	// When: A requests a match with nobody waiting
	require.NoError(t, connA.WriteJSON(websocket.Message{Type: websocket.TypeFindMatch}))

	// Then: A is enqueued
	msg := s.ReadMessageSkippingPings(connA)
	require.Equal(t, websocket.TypeWaitingForOpponent, msg.Type)

	// When: B requests a match
	require.NoError(t, connB.WriteJSON(websocket.Message{Type: websocket.TypeFindMatch}))

	// Then: both receive game_start with the same room and complementary marks
	startA := s.ReadMessageSkippingPings(connA)
	startB := s.ReadMessageSkippingPings(connB)

	require.Equal(t, websocket.TypeGameStart, startA.Type)
	require.Equal(t, websocket.TypeGameStart, startB.Type)
	assert.NotEmpty(t, startA.RoomID)
	assert.Equal(t, startA.RoomID, startB.RoomID)
	assert.NotEqual(t, startA.Symbol, startB.Symbol)
	assert.Contains(t, []string{entity.PlayerX, entity.PlayerO}, startA.Symbol)
}

func TestRelay_MoveForwarding(t *testing.T) {
	_, s := suite.New(t)

	connA, connB, roomID := pairClients(s)

	// When: A proposes a new state
	state := `{"currentPlayer":"O","currentBoard":4,"winner":""}`
	move := websocket.Message{
		Type:      websocket.TypeGameMove,
		RoomID:    roomID,
		GameState: []byte(state),
	}
	require.NoError(t, connA.WriteJSON(move))

	// Then: B receives it verbatim as a game_update
	update := s.ReadMessageSkippingPings(connB)
	require.Equal(t, websocket.TypeGameUpdate, update.Type)
	assert.JSONEq(t, state, string(update.GameState))

	// And: the store remembers the last relayed state
	room, exists := s.Store.Room(roomID)
	require.True(t, exists)
	assert.JSONEq(t, state, string(room.LastKnownState))
}

func TestRelay_GameEnded(t *testing.T) {
	_, s := suite.New(t)

	connA, _, roomID := pairClients(s)

	// When: one side signals game end
	require.NoError(t, connA.WriteJSON(websocket.Message{Type: websocket.TypeGameEnded, RoomID: roomID}))

	// Then: the room is torn down
	require.Eventually(t, func() bool {
		return s.Store.RoomCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	// And: a later move for that room is silently dropped
	require.NoError(t, connA.WriteJSON(websocket.Message{
		Type:      websocket.TypeGameMove,
		RoomID:    roomID,
		GameState: []byte(`{}`),
	}))
	assertOnlyPings(t, s, connA)
}

func TestRelay_Disconnect(t *testing.T) {
	_, s := suite.New(t)

	connA, connB, _ := pairClients(s)

	// When: A drops its transport
	require.NoError(t, connA.Close())

	// Then: B receives exactly one disconnect notice and the room is removed
	notice := s.ReadMessageSkippingPings(connB)
	assert.Equal(t, websocket.TypeOpponentDisconnected, notice.Type)

	require.Eventually(t, func() bool {
		return s.Store.RoomCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	assertOnlyPings(t, s, connB)
}

func TestRelay_ProtocolErrors(t *testing.T) {
	_, s := suite.New(t)

	conn := s.Dial()
	require.Equal(t, websocket.TypeConnected, s.ReadMessage(conn).Type)

	t.Run("Malformed JSON yields an error notice", func(t *testing.T) {
		require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte("{not json")))

		msg := s.ReadMessageSkippingPings(conn)
		assert.Equal(t, websocket.TypeError, msg.Type)
		assert.NotEmpty(t, msg.Message)
	})

	t.Run("Unknown type yields an error notice", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(websocket.Message{Type: "bogus"}))

		msg := s.ReadMessageSkippingPings(conn)
		assert.Equal(t, websocket.TypeError, msg.Type)
	})

	t.Run("The connection survives and still matchmakes", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(websocket.Message{Type: websocket.TypeFindMatch}))

		msg := s.ReadMessageSkippingPings(conn)
		assert.Equal(t, websocket.TypeWaitingForOpponent, msg.Type)
	})
}

func TestRelay_KeepAlive(t *testing.T) {
	_, s := suite.New(t)

	conn := s.Dial()
	require.Equal(t, websocket.TypeConnected, s.ReadMessage(conn).Type)

	// When: the connection idles across several probe intervals
	pings := 0
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) && pings < 3 {
		msg := s.ReadMessage(conn)
		if msg.Type == websocket.TypePing {
			pings++
			require.NoError(t, conn.WriteJSON(websocket.Message{Type: websocket.TypePong}))
		}
	}

	// Then: probes kept arriving and the connection stayed healthy
	require.GreaterOrEqual(t, pings, 2)

	require.NoError(t, conn.WriteJSON(websocket.Message{Type: websocket.TypeFindMatch}))
	msg := s.ReadMessageSkippingPings(conn)
	assert.Equal(t, websocket.TypeWaitingForOpponent, msg.Type)
}

// pairClients - dials two clients and walks them through matchmaking,
// returning both sockets and the shared room id.
func pairClients(s *suite.Suite) (connA, connB *gorilla.Conn, roomID string) {
	s.Helper()

	connA = s.Dial()
	connB = s.Dial()

	if msg := s.ReadMessage(connA); msg.Type != websocket.TypeConnected {
		s.Fatalf("expected greeting, got %q", msg.Type)
	}
	if msg := s.ReadMessage(connB); msg.Type != websocket.TypeConnected {
		s.Fatalf("expected greeting, got %q", msg.Type)
	}

	if err := connA.WriteJSON(websocket.Message{Type: websocket.TypeFindMatch}); err != nil {
		s.Fatalf("find_match failed: %v", err)
	}
	if msg := s.ReadMessageSkippingPings(connA); msg.Type != websocket.TypeWaitingForOpponent {
		s.Fatalf("expected waiting notice, got %q", msg.Type)
	}

	if err := connB.WriteJSON(websocket.Message{Type: websocket.TypeFindMatch}); err != nil {
		s.Fatalf("find_match failed: %v", err)
	}

	startA := s.ReadMessageSkippingPings(connA)
	startB := s.ReadMessageSkippingPings(connB)
	if startA.Type != websocket.TypeGameStart || startB.Type != websocket.TypeGameStart {
		s.Fatalf("expected game_start on both clients, got %q and %q", startA.Type, startB.Type)
	}

	return connA, connB, startA.RoomID
}

// assertOnlyPings - drains the socket briefly, asserting nothing but
// keep-alive probes arrives.
func assertOnlyPings(t *testing.T, s *suite.Suite, conn *gorilla.Conn) {
	t.Helper()

	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		if err := conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
			t.Fatalf("could not set read deadline: %v", err)
		}

		var msg websocket.Message
		if err := conn.ReadJSON(&msg); err != nil {
			// A read timeout means silence, which is what we expect.
			return
		}

		assert.Equal(t, websocket.TypePing, msg.Type)
	}
}
