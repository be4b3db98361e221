package websocket

import (
	"fmt"
)

// handleFindMatch - pairs the connection with a waiting peer or enqueues it.
// On pairing both sides get game_start with the shared room id and their
// randomly assigned marks.
func (that *Server) handleFindMatch(conn *connection, _ *Message) error {
	log := that.logger.With("method", "handleFindMatch")

	room, paired := that.store.RequestMatch(conn)
	if !paired {
		log.Info("player enqueued, waiting for opponent")

		if err := conn.Send(&Message{Type: TypeWaitingForOpponent}); err != nil {
			return fmt.Errorf("failed to send waiting notice: %w", err)
		}

		return nil
	}

	log = log.With("roomID", room.ID)

	for i, player := range room.Players {
		peer, ok := player.(*connection)
		if !ok {
			continue
		}

		start := &Message{
			Type:   TypeGameStart,
			RoomID: room.ID,
			Symbol: room.Marks[i],
		}

		if err := peer.Send(start); err != nil {
			log.Error("failed to send game start", "error", err)
		}
	}

	log.Info("players paired")

	return nil
}

// handleGameMove - records the relayed state and forwards it verbatim to the
// opponent. Stale rooms and closed opponents are silently dropped.
func (that *Server) handleGameMove(conn *connection, msg *Message) error {
	opponent, ok := that.store.RelayMove(conn, msg.RoomID, msg.GameState)
	if !ok {
		return nil
	}

	peer, isConn := opponent.(*connection)
	if !isConn {
		return nil
	}

	update := &Message{
		Type:      TypeGameUpdate,
		GameState: msg.GameState,
	}

	if err := peer.Send(update); err != nil {
		// Transport failure toward one recipient never affects the sender.
		that.logger.Debug("failed to forward game state", "roomID", msg.RoomID, "error", err)
	}

	return nil
}

// handleGameEnded - removes the room; a stale room id is a no-op.
func (that *Server) handleGameEnded(_ *connection, msg *Message) error {
	that.store.EndGame(msg.RoomID)

	return nil
}

// handlePong - keep-alive replies carry no contract; they only confirm the
// peer is alive at lower layers.
func (that *Server) handlePong(_ *connection, _ *Message) error {
	return nil
}
