package apperror

import "errors"

var (
	ErrGameFinished  = errors.New("game is already finished")
	ErrCellOccupied  = errors.New("cell is already occupied")
	ErrBoardResolved = errors.New("sub-board is already resolved")
	ErrWrongBoard    = errors.New("move is outside the active board")
	ErrInvalidIndex  = errors.New("invalid board or cell index")
	ErrNotYourTurn   = errors.New("it's not your turn")
	ErrNotConnected  = errors.New("not connected to an opponent")
)
