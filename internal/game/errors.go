package game

import "errors"

// Engine error kinds. Every rejected command surfaces exactly one of these;
// validation happens before any mutation, so a failed call never leaves
// partial state behind.
var (
	ErrNotEnoughTeams         = errors.New("at least one team with a member is required")
	ErrInvalidDraw            = errors.New("card index out of range or already drawn")
	ErrDeckExhausted          = errors.New("no undrawn cards remain")
	ErrRoundInProgress        = errors.New("a round is in progress, awaiting placements")
	ErrNoActiveDraw           = errors.New("no card has been drawn this round")
	ErrSlotOccupied           = errors.New("board slot is already filled")
	ErrAlreadyPlacedThisRound = errors.New("team has already placed this round")

	ErrGameNotInLobby = errors.New("game has already left the lobby phase")
	ErrGameNotStarted = errors.New("game has not been started")
	ErrGameEnded      = errors.New("game has already ended")
	ErrInvalidSlot    = errors.New("slot index out of range")
	ErrUnknownTeam    = errors.New("no such team")
	ErrTeamNotActive  = errors.New("team has no members")
)
