package game

import "github.com/google/uuid"

// TeamSnapshot is the wire view of one team board. ScoringGroups maps slot
// index to a shared group id for runs of two or more, so clients can render
// scoring runs without re-deriving them.
type TeamSnapshot struct {
	TeamNumber         int         `json:"teamNumber"`
	Members            []uuid.UUID `json:"members"`
	Slots              []*int      `json:"slots"`
	Score              int         `json:"score"`
	HasPlacedThisRound bool        `json:"hasPlacedThisRound"`
	LastPlacedBy       *uuid.UUID  `json:"lastPlacedBy,omitempty"`
	ScoringGroups      map[int]int `json:"scoringGroups,omitempty"`
}

// Snapshot is a complete, internally consistent copy of a game's state,
// produced after every successful mutation. It shares no mutable memory with
// the live game, so readers never need the game lock.
type Snapshot struct {
	GameID               uuid.UUID           `json:"gameId"`
	LobbyID              uuid.UUID           `json:"lobbyId"`
	Phase                Phase               `json:"phase"`
	Round                int                 `json:"round"`
	MaxRounds            int                 `json:"maxRounds"`
	CurrentDraw          *Card               `json:"currentDraw,omitempty"`
	WaitingForPlacements bool                `json:"waitingForPlacements"`
	DeckSize             int                 `json:"deckSize"`
	DrawnCount           int                 `json:"drawnCount"`
	Teams                []TeamSnapshot      `json:"teams"`
	FinalRanking         []FinalRankingEntry `json:"finalRanking,omitempty"`
}

// Snapshot returns a copy of the current state, taking the game lock.
func (g *RondoGame) Snapshot() Snapshot {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.snapshotLocked()
}

// snapshotLocked builds the snapshot. Assumes lock is held.
func (g *RondoGame) snapshotLocked() Snapshot {
	snap := Snapshot{
		GameID:               g.ID,
		LobbyID:              g.LobbyID,
		Phase:                g.Phase,
		Round:                g.Round,
		MaxRounds:            g.Rules.MaxRounds,
		WaitingForPlacements: g.WaitingForPlacements,
		DeckSize:             g.deck.Size(),
		DrawnCount:           len(g.drawn),
	}
	if g.CurrentDraw != nil {
		card := *g.CurrentDraw
		snap.CurrentDraw = &card
	}
	for _, t := range g.Teams {
		ts := TeamSnapshot{
			TeamNumber:         t.TeamNumber,
			Members:            append([]uuid.UUID{}, t.Members...),
			Slots:              make([]*int, BoardSize),
			Score:              t.Score,
			HasPlacedThisRound: t.HasPlacedThisRound,
			ScoringGroups:      ScoringGroups(t.Slots),
		}
		for i, s := range t.Slots {
			if s != nil {
				v := *s
				ts.Slots[i] = &v
			}
		}
		if t.LastPlacedBy != nil {
			by := *t.LastPlacedBy
			ts.LastPlacedBy = &by
		}
		snap.Teams = append(snap.Teams, ts)
	}
	if g.FinalRanking != nil {
		snap.FinalRanking = append([]FinalRankingEntry{}, g.FinalRanking...)
	}
	return snap
}
