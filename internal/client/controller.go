package client

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/ultimate"
)

// Events - notifications the controller raises toward the presentation
// layer. Any callback may be nil.
type Events struct {
	GameStarted    func(symbol string)
	StateChanged   func(game *entity.Game)
	OpponentLeft   func()
	Waiting        func()
	ConnectionLost func()
}

// Transport - the capability shared by the relay and the direct peer
// channel. A session selects exactly one; they are never mixed.
type Transport interface {
	SendState(game *entity.Game) error
	Close() error
}

// transportEvents - what a transport reports back to its controller.
type transportEvents interface {
	onGameStart(symbol string)
	onStateReceived(game *entity.Game)
	onPeerClosed()
	onWaiting()
	onTransportLost()
}

// Controller - owns the local copy of the game state and the assigned mark,
// applies local moves through the rule engine and synchronizes the resulting
// state over the selected transport.
type Controller struct {
	logger *slog.Logger
	events Events

	mu        sync.Mutex
	game      *entity.Game
	symbol    string
	transport Transport
}

func NewController(logger *slog.Logger, events Events) *Controller {
	return &Controller{
		logger: logger.With("component", "controller"),
		events: events,

		game: ultimate.NewGame(),
	}
}

// ConnectRelay - selects the matchmaking relay as this session's transport
// and requests a match.
func (that *Controller) ConnectRelay(url string, opts RelayOptions) error {
	transport, err := connectRelay(that.logger, url, that, opts)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}

	that.selectTransport(transport)

	return nil
}

// HostDirect - selects the direct peer channel, hosting a game. The returned
// code is the opaque token an opponent supplies to join.
func (that *Controller) HostDirect(broker Broker, opts DirectOptions) (string, error) {
	transport, code, err := hostDirect(that.logger, broker, that, opts)
	if err != nil {
		return "", fmt.Errorf("failed to host game: %w", err)
	}

	that.selectTransport(transport)

	return code, nil
}

// JoinDirect - selects the direct peer channel, joining a hosted game by its
// code.
func (that *Controller) JoinDirect(broker Broker, code string) error {
	transport, err := joinDirect(that.logger, broker, code, that)
	if err != nil {
		return fmt.Errorf("failed to join game: %w", err)
	}

	that.selectTransport(transport)

	return nil
}

// Play - applies a local interactive move. A rejected move changes nothing
// and transmits nothing; an accepted move is adopted locally and sent to the
// peer.
func (that *Controller) Play(board, cell int) error {
	that.mu.Lock()

	if that.transport == nil || that.symbol == entity.EmptyCell {
		that.mu.Unlock()
		return apperror.ErrNotConnected
	}

	if that.game.Turn != that.symbol {
		that.mu.Unlock()
		return apperror.ErrNotYourTurn
	}

	next, err := ultimate.ApplyMove(that.game, board, cell)
	if err != nil {
		that.mu.Unlock()
		return fmt.Errorf("move rejected: %w", err)
	}

	that.game = next
	transport := that.transport
	that.mu.Unlock()

	if err = transport.SendState(next); err != nil {
		return fmt.Errorf("failed to send state: %w", err)
	}

	return nil
}

// Game - the controller's current local state.
func (that *Controller) Game() *entity.Game {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.game
}

// Symbol - the mark assigned for the current session, empty when no game is
// in progress.
func (that *Controller) Symbol() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.symbol
}

// Reset - ends the current session: signals game end over the transport,
// then discards transport, mark and state.
func (that *Controller) Reset() {
	that.mu.Lock()
	transport := that.transport
	that.transport = nil
	that.symbol = entity.EmptyCell
	that.game = ultimate.NewGame()
	that.mu.Unlock()

	if transport != nil {
		if err := transport.Close(); err != nil {
			that.logger.Debug("failed to close transport", "error", err)
		}
	}
}

// selectTransport - adopts a newly selected transport, discarding any
// previous one.
func (that *Controller) selectTransport(transport Transport) {
	that.mu.Lock()
	previous := that.transport
	that.transport = transport
	that.mu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}
}

func (that *Controller) onGameStart(symbol string) {
	that.mu.Lock()
	that.symbol = symbol
	that.game = ultimate.NewGame()
	that.mu.Unlock()

	that.logger.Info("game started", "symbol", symbol)

	if that.events.GameStarted != nil {
		that.events.GameStarted(symbol)
	}
}

// onStateReceived - replaces the local state wholesale with the peer's; the
// sender is trusted completely and nothing is re-validated locally.
func (that *Controller) onStateReceived(game *entity.Game) {
	that.mu.Lock()
	that.game = game
	that.mu.Unlock()

	if that.events.StateChanged != nil {
		that.events.StateChanged(game)
	}
}

func (that *Controller) onPeerClosed() {
	that.mu.Lock()
	that.symbol = entity.EmptyCell
	that.mu.Unlock()

	that.logger.Info("opponent left")

	if that.events.OpponentLeft != nil {
		that.events.OpponentLeft()
	}
}

func (that *Controller) onWaiting() {
	if that.events.Waiting != nil {
		that.events.Waiting()
	}
}

// onTransportLost - clears the assigned mark so no further local moves are
// attempted, then tells the presentation layer.
func (that *Controller) onTransportLost() {
	that.mu.Lock()
	that.symbol = entity.EmptyCell
	that.mu.Unlock()

	that.logger.Warn("transport lost")

	if that.events.ConnectionLost != nil {
		that.events.ConnectionLost()
	}
}
