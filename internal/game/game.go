package game

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rondo-game/rondo/internal/cache"
)

// Phase is the top-level state of a game instance.
type Phase string

const (
	PhaseLobby  Phase = "lobby"
	PhaseActive Phase = "active"
	PhaseEnded  Phase = "ended"
)

// GameEventType names the events broadcast to clients.
type GameEventType string

const (
	EventGameStart    GameEventType = "game_start"
	EventCardDrawn    GameEventType = "game_card_drawn"    // a new round opened with a drawn card
	EventTeamPlaced   GameEventType = "team_placed"        // one team placed the current value
	EventRoundSettled GameEventType = "game_round_settled" // every active team has placed
	EventGameEnd      GameEventType = "game_end"           // terminal phase reached, final ranking attached
	EventSyncState    GameEventType = "sync_state"         // full snapshot, sent on connect and after mutations
)

// EventUser identifies a user within an event payload.
type EventUser struct {
	ID uuid.UUID `json:"id"`
}

// GameEvent is the broadcast unit for everything that happens in a game.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	User    *EventUser             `json:"user,omitempty"`
	Team    *int                   `json:"team,omitempty"`
	Card    *Card                  `json:"card,omitempty"`
	Slot    *int                   `json:"slot,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	State   *Snapshot              `json:"state,omitempty"`
}

// OnGameEndFunc handles a finished game: persisting results, notifying the
// lobby, and so on.
type OnGameEndFunc func(lobbyID uuid.UUID, ranking []FinalRankingEntry)

// RondoGame holds the entire state for a single game instance in memory.
// All mutating operations serialize on Mu; validation and mutation are not
// transactional across steps, so concurrent unsynchronized calls could both
// pass a check before either mutates.
type RondoGame struct {
	ID      uuid.UUID
	LobbyID uuid.UUID // references the lobby that spawned this game

	Rules Rules

	Phase Phase
	Round int

	// CurrentDraw is the card revealed for the round in progress, nil while
	// idle between rounds.
	CurrentDraw *Card
	// WaitingForPlacements is true from a successful draw until every active
	// team has placed.
	WaitingForPlacements bool

	Teams []*TeamBoard

	deck  *Deck
	drawn DrawnSet

	// FinalRanking is computed exactly once, on the transition to ended, and
	// frozen afterward.
	FinalRanking []FinalRankingEntry

	Mu sync.Mutex

	actionIndex int

	// BroadcastFn sends an event to every connected viewer. Nil disables
	// broadcasting.
	BroadcastFn func(ev GameEvent)

	// BroadcastToUserFn sends an event to a single user.
	BroadcastToUserFn func(userID uuid.UUID, ev GameEvent)

	// OnGameEnd is invoked once when the game reaches its terminal phase.
	OnGameEnd OnGameEndFunc
}

// NewRondoGame builds a fresh game in the lobby phase. Every team board is
// created fully initialized up front, so later code never patches a missing
// roster or slot array.
func NewRondoGame(rules Rules) *RondoGame {
	id, _ := uuid.NewRandom()
	g := &RondoGame{
		ID:    id,
		Rules: rules,
		Phase: PhaseLobby,
		deck:  BuildDeck(rules.Deck),
		drawn: make(DrawnSet),
	}
	for i := 0; i < rules.TeamCount; i++ {
		g.Teams = append(g.Teams, NewTeamBoard(i+1))
	}
	log.Printf("Created game %s: %d teams, %d-card deck, %d rounds max.", g.ID, len(g.Teams), g.deck.Size(), rules.MaxRounds)
	return g
}

// DeckSize returns the number of cards the deck was built with.
func (g *RondoGame) DeckSize() int {
	return g.deck.Size()
}

// Team returns the board for the given team number, or nil.
// Assumes lock is held.
func (g *RondoGame) team(teamNumber int) *TeamBoard {
	for _, t := range g.Teams {
		if t.TeamNumber == teamNumber {
			return t
		}
	}
	return nil
}

// AddMember puts a user on a team's roster. Roster mutation is owned by the
// lobby flow and is only accepted while the game is still in the lobby
// phase; capacity checks happen upstream.
func (g *RondoGame) AddMember(teamNumber int, userID uuid.UUID) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Phase != PhaseLobby {
		return ErrGameNotInLobby
	}
	t := g.team(teamNumber)
	if t == nil {
		return ErrUnknownTeam
	}
	if t.HasMember(userID) {
		return nil
	}
	t.Members = append(t.Members, userID)
	g.logAction(userID, "roster_add", map[string]interface{}{"team": teamNumber})
	return nil
}

// TeamOf returns the team number the user belongs to, or false.
func (g *RondoGame) TeamOf(userID uuid.UUID) (int, bool) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	for _, t := range g.Teams {
		if t.HasMember(userID) {
			return t.TeamNumber, true
		}
	}
	return 0, false
}

// Start transitions lobby -> active. It requires at least one team with a
// member, resets the round counter and clears any current draw.
func (g *RondoGame) Start(by uuid.UUID) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	switch g.Phase {
	case PhaseActive:
		return ErrGameNotInLobby
	case PhaseEnded:
		return ErrGameEnded
	}

	anyActive := false
	for _, t := range g.Teams {
		if t.Active() {
			anyActive = true
			break
		}
	}
	if !anyActive {
		return ErrNotEnoughTeams
	}

	g.Phase = PhaseActive
	g.Round = 0
	g.CurrentDraw = nil
	g.WaitingForPlacements = false

	log.Printf("Game %s started.", g.ID)
	g.logAction(by, string(EventGameStart), nil)
	g.fireEvent(GameEvent{Type: EventGameStart, User: &EventUser{ID: by}})
	g.broadcastSnapshot()
	return nil
}

// DrawCard reveals the card at an explicit deck index and opens the round's
// placement window.
func (g *RondoGame) DrawCard(by uuid.UUID, index int) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.draw(by, index)
}

// DrawRandom reveals a card selected uniformly among the undrawn indices.
func (g *RondoGame) DrawRandom(by uuid.UUID) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if err := g.checkDrawAllowed(); err != nil {
		return err
	}
	index, err := g.deck.RandomUndrawn(g.drawn)
	if err != nil {
		return err
	}
	return g.draw(by, index)
}

// checkDrawAllowed validates phase and sub-state for a draw.
// Assumes lock is held.
func (g *RondoGame) checkDrawAllowed() error {
	switch g.Phase {
	case PhaseLobby:
		return ErrGameNotStarted
	case PhaseEnded:
		return ErrGameEnded
	}
	if g.WaitingForPlacements {
		return ErrRoundInProgress
	}
	return nil
}

// draw performs the single atomic draw step: validate, obtain the card,
// register its index, reset per-round team flags, advance the round counter
// and open the placement window. Assumes lock is held.
func (g *RondoGame) draw(by uuid.UUID, index int) error {
	if err := g.checkDrawAllowed(); err != nil {
		return err
	}
	card, err := g.deck.Draw(g.drawn, index)
	if err != nil {
		return err
	}

	g.drawn[card.Index] = true
	g.CurrentDraw = &card
	for _, t := range g.Teams {
		t.HasPlacedThisRound = false
	}
	g.Round++
	g.WaitingForPlacements = true

	g.logAction(by, string(EventCardDrawn), map[string]interface{}{
		"index": card.Index,
		"value": card.Value,
		"round": g.Round,
	})
	g.fireEvent(GameEvent{
		Type: EventCardDrawn,
		User: &EventUser{ID: by},
		Card: &card,
		Payload: map[string]interface{}{
			"round":     g.Round,
			"remaining": g.deck.Size() - len(g.drawn),
		},
	})
	g.broadcastSnapshot()
	return nil
}

// PlaceForTeam places the current draw value on one open slot of the team's
// board. When the last active team places, the round settles and the
// termination conditions are checked.
func (g *RondoGame) PlaceForTeam(teamNumber, slotIndex int, placedBy uuid.UUID) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	switch g.Phase {
	case PhaseLobby:
		return ErrGameNotStarted
	case PhaseEnded:
		return ErrGameEnded
	}
	if g.CurrentDraw == nil || !g.WaitingForPlacements {
		return ErrNoActiveDraw
	}
	t := g.team(teamNumber)
	if t == nil {
		return ErrUnknownTeam
	}
	if !t.Active() {
		return ErrTeamNotActive
	}

	if err := t.place(slotIndex, g.CurrentDraw.Value, placedBy); err != nil {
		return err
	}

	slot := slotIndex
	g.logAction(placedBy, string(EventTeamPlaced), map[string]interface{}{
		"team":  teamNumber,
		"slot":  slotIndex,
		"value": g.CurrentDraw.Value,
		"score": t.Score,
	})
	g.fireEvent(GameEvent{
		Type: EventTeamPlaced,
		User: &EventUser{ID: placedBy},
		Team: &teamNumber,
		Slot: &slot,
		Card: g.CurrentDraw,
		Payload: map[string]interface{}{
			"score": t.Score,
		},
	})

	if g.allActivePlaced() {
		g.settleRound()
	}
	g.broadcastSnapshot()
	return nil
}

// allActivePlaced reports whether every team with a member has placed this
// round. Assumes lock is held.
func (g *RondoGame) allActivePlaced() bool {
	for _, t := range g.Teams {
		if t.Active() && !t.HasPlacedThisRound {
			return false
		}
	}
	return true
}

// settleRound closes the placement window and runs the termination check.
// Assumes lock is held.
func (g *RondoGame) settleRound() {
	g.WaitingForPlacements = false
	g.CurrentDraw = nil

	g.logAction(uuid.Nil, string(EventRoundSettled), map[string]interface{}{"round": g.Round})
	g.fireEvent(GameEvent{
		Type:    EventRoundSettled,
		Payload: map[string]interface{}{"round": g.Round},
	})

	if g.Round >= g.Rules.MaxRounds || g.allActiveBoardsFull() {
		g.endGame()
	}
}

// allActiveBoardsFull reports whether no active team has an open slot left.
// Assumes lock is held.
func (g *RondoGame) allActiveBoardsFull() bool {
	for _, t := range g.Teams {
		if t.Active() && !t.full() {
			return false
		}
	}
	return true
}

// endGame transitions to the terminal phase, computes the final ranking
// exactly once and freezes it. Assumes lock is held.
func (g *RondoGame) endGame() {
	if g.Phase == PhaseEnded {
		return
	}
	g.Phase = PhaseEnded
	g.FinalRanking = Rank(g.Teams)

	log.Printf("Game %s ended after round %d.", g.ID, g.Round)
	g.logAction(uuid.Nil, string(EventGameEnd), map[string]interface{}{"round": g.Round})
	g.fireEvent(GameEvent{
		Type: EventGameEnd,
		Payload: map[string]interface{}{
			"round":   g.Round,
			"ranking": g.FinalRanking,
		},
	})

	if g.OnGameEnd != nil {
		ranking := make([]FinalRankingEntry, len(g.FinalRanking))
		copy(ranking, g.FinalRanking)
		go g.OnGameEnd(g.LobbyID, ranking)
	}
}

// fireEvent broadcasts an event to all viewers. Assumes lock is held.
func (g *RondoGame) fireEvent(ev GameEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	}
}

// FireEventToUser sends an event to a single user. Assumes lock is held.
func (g *RondoGame) FireEventToUser(userID uuid.UUID, ev GameEvent) {
	if g.BroadcastToUserFn != nil {
		g.BroadcastToUserFn(userID, ev)
	}
}

// broadcastSnapshot pushes the post-mutation state to all viewers.
// Assumes lock is held.
func (g *RondoGame) broadcastSnapshot() {
	if g.BroadcastFn == nil {
		return
	}
	snap := g.snapshotLocked()
	g.BroadcastFn(GameEvent{Type: EventSyncState, State: &snap})
}

// logAction publishes an action record onto the historian queue. Publishing
// is asynchronous and best-effort; the engine never blocks on Redis.
func (g *RondoGame) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.GameActionRecord{
		GameID:        g.ID,
		ActionIndex:   g.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec cache.GameActionRecord) {
		if cache.Rdb == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			log.Printf("Error publishing action %d for game %s: %v", rec.ActionIndex, rec.GameID, err)
		}
	}(record)
}
