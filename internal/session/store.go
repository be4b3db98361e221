package session

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/monitor"
)

// Conn - the connection handle the store tracks. The store never touches the
// transport beyond checking whether a recipient is still open, so it stays
// unit-testable without standing up a WebSocket server.
type Conn interface {
	IsOpen() bool
}

// Room - a paired session between exactly two connections. LastKnownState is
// the last relayed game state, stored for reference but never re-validated.
type Room struct {
	ID             string
	Players        [2]Conn
	Marks          [2]string
	LastKnownState json.RawMessage
}

// Contains - reports whether conn is a participant of the room.
func (that *Room) Contains(conn Conn) bool {
	return conn == that.Players[0] || conn == that.Players[1]
}

// Opponent - returns the other participant of the room, or nil when conn is
// not a participant.
func (that *Room) Opponent(conn Conn) Conn {
	switch conn {
	case that.Players[0]:
		return that.Players[1]
	case that.Players[1]:
		return that.Players[0]
	default:
		return nil
	}
}

// MarkOf - returns the mark assigned to conn, or the empty string for a
// non-participant.
func (that *Room) MarkOf(conn Conn) string {
	switch conn {
	case that.Players[0]:
		return that.Marks[0]
	case that.Players[1]:
		return that.Marks[1]
	default:
		return entity.EmptyCell
	}
}

// Store - in-memory registry of the matchmaking waiting set and active rooms.
// All mutations happen under one mutex so pop-and-pair stays atomic even with
// concurrent connection goroutines.
type Store struct {
	logger  *slog.Logger
	metrics *monitor.Metrics

	mu      sync.Mutex
	waiting map[Conn]struct{}
	rooms   map[string]*Room
}

func NewStore(logger *slog.Logger, metrics *monitor.Metrics) *Store {
	return &Store{
		logger:  logger.With("component", "session"),
		metrics: metrics,

		waiting: make(map[Conn]struct{}),
		rooms:   make(map[string]*Room),
	}
}

// RequestMatch - pairs conn with a waiting peer, or enqueues it.
// On pairing the returned room carries randomly assigned marks; otherwise the
// room is nil and conn has joined the waiting set. A connection is never in
// the waiting set and a room at the same time.
func (that *Store) RequestMatch(conn Conn) (*Room, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	// A repeated request from a connection already waiting must not pair it
	// against itself.
	var opponent Conn
	for waiting := range that.waiting {
		if waiting == conn {
			continue
		}

		opponent = waiting
		break
	}

	if opponent == nil {
		that.waiting[conn] = struct{}{}
		that.syncGauges()

		return nil, false
	}

	delete(that.waiting, opponent)

	firstMark, secondMark := entity.GetRandomMarks()
	room := &Room{
		ID:      uuid.NewString(),
		Players: [2]Conn{opponent, conn},
		Marks:   [2]string{firstMark, secondMark},
	}
	that.rooms[room.ID] = room

	that.metrics.RoomsCreated.Inc()
	that.syncGauges()

	that.logger.Info("room created", "roomID", room.ID)

	return room, true
}

// RelayMove - records state as the room's last known state and returns the
// opponent to forward it to. A stale roomID or a closed opponent yields
// ok=false; both are harmless and silently dropped by the caller.
func (that *Store) RelayMove(conn Conn, roomID string, state json.RawMessage) (Conn, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, exists := that.rooms[roomID]
	if !exists {
		return nil, false
	}

	room.LastKnownState = state
	that.metrics.MovesRelayed.Inc()

	opponent := room.Opponent(conn)
	if opponent == nil || !opponent.IsOpen() {
		return nil, false
	}

	return opponent, true
}

// EndGame - removes the room unconditionally. The caller is not required to
// be a participant; a stale roomID is a no-op.
func (that *Store) EndGame(roomID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, exists := that.rooms[roomID]; !exists {
		return
	}

	delete(that.rooms, roomID)
	that.syncGauges()

	that.logger.Info("room removed", "roomID", roomID)
}

// Disconnect - removes conn from the waiting set and destroys every room it
// participates in, returning the still-open opponents that should be told
// their peer left. Under normal operation a connection is in at most one room.
func (that *Store) Disconnect(conn Conn) []Conn {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.waiting, conn)

	var opponents []Conn
	for roomID, room := range that.rooms {
		if !room.Contains(conn) {
			continue
		}

		if opponent := room.Opponent(conn); opponent != nil && opponent.IsOpen() {
			opponents = append(opponents, opponent)
		}

		delete(that.rooms, roomID)
		that.logger.Info("room removed after disconnect", "roomID", roomID)
	}

	that.syncGauges()

	return opponents
}

// Room - looks up an active room by id.
func (that *Store) Room(roomID string) (*Room, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, exists := that.rooms[roomID]

	return room, exists
}

// WaitingCount - number of connections waiting for an opponent.
func (that *Store) WaitingCount() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.waiting)
}

// RoomCount - number of active rooms.
func (that *Store) RoomCount() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.rooms)
}

// syncGauges - must be called with the mutex held.
func (that *Store) syncGauges() {
	that.metrics.WaitingPlayers.Set(float64(len(that.waiting)))
	that.metrics.ActiveRooms.Set(float64(len(that.rooms)))
}
