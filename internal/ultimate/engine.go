package ultimate

import (
	"fmt"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

// NewGame - returns the initial state: all cells empty, X to move,
// any sub-board playable, nothing resolved.
func NewGame() *entity.Game {
	return &entity.Game{
		Turn: entity.PlayerX,
	}
}

// ApplyMove - validates a move and returns the resulting state.
// The input state is never mutated; on rejection the returned state is nil
// and the error names the first failed precondition.
func ApplyMove(gameInstance *entity.Game, board, cell int) (*entity.Game, error) {
	if err := validateMove(gameInstance, board, cell); err != nil {
		return nil, fmt.Errorf("invalid turn: %w", err)
	}

	next := gameInstance.Clone()

	next.Board[board][cell] = gameInstance.Turn
	next.SubResults[board] = SubBoardResult(next.Board[board])
	next.Winner = superBoardResult(next.SubResults)

	// The cell index routes the opponent to the identically-indexed sub-board,
	// unless that sub-board is already resolved.
	if next.SubResults[cell] != entity.EmptyCell {
		next.ActiveBoard = nil
	} else {
		target := cell
		next.ActiveBoard = &target
	}

	next.Turn = entity.ToggleMark(gameInstance.Turn)

	return next, nil
}

// validateMove - checks the move preconditions in order; the first failing
// one determines the rejection reason.
func validateMove(gameInstance *entity.Game, board, cell int) error {
	if board < 0 || board > 8 || cell < 0 || cell > 8 {
		return fmt.Errorf("%w: board %d cell %d", apperror.ErrInvalidIndex, board, cell)
	}

	if gameInstance.IsFinished() {
		return apperror.ErrGameFinished
	}

	if gameInstance.Board[board][cell] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	if gameInstance.SubResults[board] != entity.EmptyCell {
		return apperror.ErrBoardResolved
	}

	if active, constrained := gameInstance.ActiveBoardIndex(); constrained && active != board {
		return apperror.ErrWrongBoard
	}

	return nil
}

// SubBoardResult - resolves one sub-board: the mark holding any winning
// triple, PlayerTie when full without a triple, EmptyCell otherwise.
func SubBoardResult(cells entity.SubBoard) string {
	for _, combo := range entity.WinCombos {
		a, b, c := cells[combo[0]], cells[combo[1]], cells[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return a
		}
	}

	for _, cell := range cells {
		if cell == entity.EmptyCell {
			return entity.EmptyCell
		}
	}

	return entity.PlayerTie
}

// superBoardResult - derives the overall winner from the sub-board results.
// Tied sub-boards count as neither player's mark. A fully resolved super-board
// without a triple is a tie.
func superBoardResult(results [9]string) string {
	for _, combo := range entity.WinCombos {
		a, b, c := results[combo[0]], results[combo[1]], results[combo[2]]
		if (a == entity.PlayerX || a == entity.PlayerO) && a == b && b == c {
			return a
		}
	}

	for _, result := range results {
		if result == entity.EmptyCell {
			return entity.EmptyCell
		}
	}

	return entity.PlayerTie
}
