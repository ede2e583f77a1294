package game

import "github.com/google/uuid"

// TeamBoard is one team's placement state: its roster, its 20-slot ring, and
// the score derived from it. Boards are always constructed fully initialized
// (20 open slots, empty roster) so no downstream code ever patches a missing
// structure.
type TeamBoard struct {
	TeamNumber int         `json:"teamNumber"`
	Members    []uuid.UUID `json:"members"`
	Slots      Slots       `json:"slots"`
	Score      int         `json:"score"`

	// HasPlacedThisRound is cleared on every draw and set once the team
	// places; it gates one placement per team per round.
	HasPlacedThisRound bool `json:"hasPlacedThisRound"`

	// LastPlacedBy records the identity that made the team's most recent
	// placement, for attribution in snapshots.
	LastPlacedBy *uuid.UUID `json:"lastPlacedBy,omitempty"`
}

// NewTeamBoard returns an empty board for the given team number.
func NewTeamBoard(teamNumber int) *TeamBoard {
	return &TeamBoard{
		TeamNumber: teamNumber,
		Members:    []uuid.UUID{},
		Slots:      NewSlots(),
	}
}

// Active reports whether the team has at least one member. Only active teams
// take part in rounds.
func (b *TeamBoard) Active() bool {
	return len(b.Members) > 0
}

// HasMember reports whether the given identity is on the team's roster.
func (b *TeamBoard) HasMember(userID uuid.UUID) bool {
	for _, m := range b.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// full reports whether every slot on the ring is filled.
func (b *TeamBoard) full() bool {
	for _, s := range b.Slots {
		if s != nil {
			continue
		}
		return false
	}
	return true
}

// place writes value into the given slot and recomputes the score from
// scratch. It is the only mutation path to a board's slots; a filled slot is
// never cleared or overwritten. The state machine validates the active draw
// before delegating here, and holds the game lock throughout.
func (b *TeamBoard) place(slotIndex, value int, placedBy uuid.UUID) error {
	if slotIndex < 0 || slotIndex >= BoardSize {
		return ErrInvalidSlot
	}
	if b.Slots[slotIndex] != nil {
		return ErrSlotOccupied
	}
	if b.HasPlacedThisRound {
		return ErrAlreadyPlacedThisRound
	}

	v := value
	b.Slots[slotIndex] = &v
	b.HasPlacedThisRound = true
	by := placedBy
	b.LastPlacedBy = &by

	b.Score = ComputeScore(b.Slots)
	return nil
}
