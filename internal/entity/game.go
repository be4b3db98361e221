package entity

import (
	"math/rand"
)

const (
	PlayerX   = "X"
	PlayerO   = "O"
	PlayerTie = "-"

	EmptyCell = ""
)

// WinCombos - the 8 canonical three-in-a-row triples of a 3x3 grid.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// SubBoard - one of the nine inner 3x3 grids, row-major.
type SubBoard [9]string

// Game - the full synchronized state of an ultimate tic-tac-toe match.
// The JSON shape is the wire contract: it is relayed between peers verbatim.
// ActiveBoard is nil when the next move may land in any sub-board.
// SubResults holds the per-sub-board result: PlayerX, PlayerO, PlayerTie for
// a full board without a triple, or EmptyCell while still unresolved.
type Game struct {
	Board       [9]SubBoard `json:"board"`
	Turn        string      `json:"currentPlayer"`
	ActiveBoard *int        `json:"currentBoard"`
	SubResults  [9]string   `json:"winners"`
	Winner      string      `json:"winner,omitempty"`
}

// Clone - returns a deep copy of the game state.
func (that *Game) Clone() *Game {
	clone := *that

	if that.ActiveBoard != nil {
		idx := *that.ActiveBoard
		clone.ActiveBoard = &idx
	}

	return &clone
}

// ActiveBoardIndex - returns the sub-board the next move is constrained to,
// or false when the move may land anywhere.
func (that *Game) ActiveBoardIndex() (int, bool) {
	if that.ActiveBoard == nil {
		return 0, false
	}

	return *that.ActiveBoard, true
}

// IsFinished - reports whether the match has a terminal result.
func (that *Game) IsFinished() bool {
	return that.Winner != EmptyCell
}

// GetRandomMarks - picks which paired connection plays X; X always moves first
// but either physical connection may hold either mark.
func GetRandomMarks() (string, string) {
	if rand.Intn(2) == 0 { //nolint: gosec // it's ok
		return PlayerX, PlayerO
	}
	return PlayerO, PlayerX
}

func ToggleMark(currentMark string) string {
	if currentMark == PlayerX {
		return PlayerO
	}
	return PlayerX
}
