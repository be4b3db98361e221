package websocket

import "encoding/json"

// Message type tags of the relay wire protocol.
const (
	TypeConnected            = "connected"
	TypeFindMatch            = "find_match"
	TypeWaitingForOpponent   = "waiting_for_opponent"
	TypeGameStart            = "game_start"
	TypeGameMove             = "game_move"
	TypeGameUpdate           = "game_update"
	TypeGameEnded            = "game_ended"
	TypeOpponentDisconnected = "opponent_disconnected"
	TypePing                 = "ping"
	TypePong                 = "pong"
	TypeError                = "error"
)

// Message - one relay protocol frame: a type tag plus type-specific fields.
// GameState is relayed as an opaque blob; the relay never interprets it.
type Message struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"roomId,omitempty"`
	Symbol    string          `json:"symbol,omitempty"`
	GameState json.RawMessage `json:"gameState,omitempty"`
	Message   string          `json:"message,omitempty"`
}
