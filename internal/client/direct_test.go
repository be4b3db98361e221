package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()

	select {
	case value := <-ch:
		return value
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func TestDirectTransport(t *testing.T) {
	t.Run("Host and joiner establish a channel and exchange state", func(t *testing.T) {
		// Given: a broker and a hosting controller
		broker := NewLoopbackBroker()

		hostStarted := make(chan string, 1)
		hostWaiting := make(chan struct{}, 1)
		hostStates := make(chan *entity.Game, 4)
		host := NewController(discardLogger(), Events{
			GameStarted:  func(symbol string) { hostStarted <- symbol },
			Waiting:      func() { hostWaiting <- struct{}{} },
			StateChanged: func(game *entity.Game) { hostStates <- game },
		})

		code, err := host.HostDirect(broker, DirectOptions{})
		require.NoError(t, err)
		require.NotEmpty(t, code)
		waitFor(t, hostWaiting, "host waiting notice")

		// When: an opponent joins with the host's code
		joinerStarted := make(chan string, 1)
		joinerStates := make(chan *entity.Game, 4)
		joiner := NewController(discardLogger(), Events{
			GameStarted:  func(symbol string) { joinerStarted <- symbol },
			StateChanged: func(game *entity.Game) { joinerStates <- game },
		})
		require.NoError(t, joiner.JoinDirect(broker, code))

		// Then: the host plays X and the joiner plays O
		assert.Equal(t, entity.PlayerX, waitFor(t, hostStarted, "host game start"))
		assert.Equal(t, entity.PlayerO, waitFor(t, joinerStarted, "joiner game start"))

		// And: a host move arrives at the joiner with no relay in between
		require.NoError(t, host.Play(0, 4))

		received := waitFor(t, joinerStates, "joiner state update")
		assert.Equal(t, entity.PlayerX, received.Board[0][4])
		assert.Equal(t, entity.PlayerO, received.Turn)

		// And: the joiner can answer on the routed board
		require.NoError(t, joiner.Play(4, 0))

		answered := waitFor(t, hostStates, "host state update")
		assert.Equal(t, entity.PlayerO, answered.Board[4][0])
		assert.Equal(t, entity.PlayerX, answered.Turn)
	})

	t.Run("Joining with an unknown code fails", func(t *testing.T) {
		broker := NewLoopbackBroker()
		controller := NewController(discardLogger(), Events{})

		err := controller.JoinDirect(broker, "no-such-code")

		assert.ErrorIs(t, err, ErrUnknownGameCode)
	})

	t.Run("A second peer is rejected once the channel is established", func(t *testing.T) {
		// Given: an established host/joiner pair
		broker := NewLoopbackBroker()

		hostStarted := make(chan string, 1)
		host := NewController(discardLogger(), Events{
			GameStarted: func(symbol string) { hostStarted <- symbol },
		})
		code, err := host.HostDirect(broker, DirectOptions{})
		require.NoError(t, err)

		joiner := NewController(discardLogger(), Events{})
		require.NoError(t, joiner.JoinDirect(broker, code))
		waitFor(t, hostStarted, "host game start")

		// When: a third party tries the same code
		intruderClosed := make(chan struct{}, 1)
		intruder := NewController(discardLogger(), Events{
			OpponentLeft: func() { intruderClosed <- struct{}{} },
		})
		err = intruder.JoinDirect(broker, code)

		// Then: the handshake succeeds but the channel is closed immediately
		require.NoError(t, err)
		waitFor(t, intruderClosed, "intruder channel close")
	})
}
