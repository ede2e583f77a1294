package game

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu         sync.Mutex
	allEvents  []GameEvent
	userEvents map[uuid.UUID][]GameEvent
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{
		userEvents: make(map[uuid.UUID][]GameEvent),
	}
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) broadcastToUserFn(userID uuid.UUID, ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.userEvents[userID] = append(mb.userEvents[userID], ev)
}

func (mb *mockBroadcaster) lastEventOfType(t GameEventType) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := len(mb.allEvents) - 1; i >= 0; i-- {
		if mb.allEvents[i].Type == t {
			return &mb.allEvents[i]
		}
	}
	return nil
}

// setupTestGame builds a started game with one member per team.
func setupTestGame(t *testing.T, rules Rules) (*RondoGame, []uuid.UUID, *mockBroadcaster) {
	g := NewRondoGame(rules)
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	g.BroadcastToUserFn = mb.broadcastToUserFn

	members := make([]uuid.UUID, len(g.Teams))
	for i, team := range g.Teams {
		members[i] = uuid.New()
		require.NoError(t, g.AddMember(team.TeamNumber, members[i]))
	}

	host := uuid.New()
	require.NoError(t, g.Start(host))
	require.Equal(t, PhaseActive, g.Phase)
	return g, members, mb
}

// checkScoreInvariant asserts score == ComputeScore(slots) for every team.
func checkScoreInvariant(t *testing.T, g *RondoGame) {
	t.Helper()
	g.Mu.Lock()
	defer g.Mu.Unlock()
	for _, team := range g.Teams {
		assert.Equal(t, ComputeScore(team.Slots), team.Score, "team %d score drifted", team.TeamNumber)
	}
}

func TestStartRequiresActiveTeam(t *testing.T) {
	g := NewRondoGame(DefaultRules())
	err := g.Start(uuid.New())
	assert.ErrorIs(t, err, ErrNotEnoughTeams)
	assert.Equal(t, PhaseLobby, g.Phase, "rejected start must leave state unchanged")

	require.NoError(t, g.AddMember(1, uuid.New()))
	require.NoError(t, g.Start(uuid.New()))
	assert.Equal(t, PhaseActive, g.Phase)
	assert.Equal(t, 0, g.Round)
	assert.Nil(t, g.CurrentDraw)

	err = g.Start(uuid.New())
	assert.ErrorIs(t, err, ErrGameNotInLobby)
}

func TestRosterFrozenAfterStart(t *testing.T) {
	g, _, _ := setupTestGame(t, DefaultRules())
	err := g.AddMember(1, uuid.New())
	assert.ErrorIs(t, err, ErrGameNotInLobby)
}

func TestDrawOpensRoundAndResetsPlacementFlags(t *testing.T) {
	g, members, mb := setupTestGame(t, DefaultRules())
	host := uuid.New()

	require.NoError(t, g.DrawCard(host, 0))
	assert.Equal(t, 1, g.Round)
	assert.True(t, g.WaitingForPlacements)
	require.NotNil(t, g.CurrentDraw)
	assert.Equal(t, 0, g.CurrentDraw.Index)
	for _, team := range g.Teams {
		assert.False(t, team.HasPlacedThisRound)
	}

	ev := mb.lastEventOfType(EventCardDrawn)
	require.NotNil(t, ev)
	assert.Equal(t, g.CurrentDraw.Value, ev.Card.Value)

	// A second draw before placements settle must be rejected untouched.
	err := g.DrawCard(host, 1)
	assert.ErrorIs(t, err, ErrRoundInProgress)
	assert.Equal(t, 1, g.Round, "round counter only moves on successful draws")

	// Placements settle the round; flags reset on the next draw.
	require.NoError(t, g.PlaceForTeam(1, 3, members[0]))
	require.NoError(t, g.PlaceForTeam(2, 3, members[1]))
	assert.False(t, g.WaitingForPlacements)

	require.NoError(t, g.DrawCard(host, 1))
	assert.Equal(t, 2, g.Round)
	for _, team := range g.Teams {
		assert.False(t, team.HasPlacedThisRound)
	}
}

func TestDrawRejectsRepeatIndex(t *testing.T) {
	g, members, _ := setupTestGame(t, DefaultRules())
	host := uuid.New()

	require.NoError(t, g.DrawCard(host, 5))
	require.NoError(t, g.PlaceForTeam(1, 0, members[0]))
	require.NoError(t, g.PlaceForTeam(2, 0, members[1]))

	err := g.DrawCard(host, 5)
	assert.ErrorIs(t, err, ErrInvalidDraw)
	err = g.DrawCard(host, 99)
	assert.ErrorIs(t, err, ErrInvalidDraw)
	assert.Equal(t, 1, g.Round)
}

func TestPlaceValidation(t *testing.T) {
	g, members, _ := setupTestGame(t, DefaultRules())
	host := uuid.New()

	// No draw yet.
	err := g.PlaceForTeam(1, 0, members[0])
	assert.ErrorIs(t, err, ErrNoActiveDraw)

	require.NoError(t, g.DrawCard(host, 0))

	err = g.PlaceForTeam(1, -1, members[0])
	assert.ErrorIs(t, err, ErrInvalidSlot)
	err = g.PlaceForTeam(1, BoardSize, members[0])
	assert.ErrorIs(t, err, ErrInvalidSlot)
	err = g.PlaceForTeam(9, 0, members[0])
	assert.ErrorIs(t, err, ErrUnknownTeam)

	require.NoError(t, g.PlaceForTeam(1, 4, members[0]))
	team1 := g.Teams[0]
	require.NotNil(t, team1.Slots[4])
	assert.Equal(t, g.CurrentDraw.Value, *team1.Slots[4])
	assert.True(t, team1.HasPlacedThisRound)
	require.NotNil(t, team1.LastPlacedBy)
	assert.Equal(t, members[0], *team1.LastPlacedBy)

	// Second placement for the same team within the round fails and leaves
	// the board exactly as after the first.
	placedValue := *team1.Slots[4]
	err = g.PlaceForTeam(1, 5, members[0])
	assert.ErrorIs(t, err, ErrAlreadyPlacedThisRound)
	assert.Nil(t, team1.Slots[5])
	assert.Equal(t, placedValue, *team1.Slots[4])

	checkScoreInvariant(t, g)
}

func TestPlaceRejectsOccupiedSlot(t *testing.T) {
	g, members, _ := setupTestGame(t, DefaultRules())
	host := uuid.New()

	require.NoError(t, g.DrawCard(host, 0))
	require.NoError(t, g.PlaceForTeam(1, 7, members[0]))
	require.NoError(t, g.PlaceForTeam(2, 7, members[1]))
	firstValue := *g.Teams[0].Slots[7]

	require.NoError(t, g.DrawCard(host, 1))
	err := g.PlaceForTeam(1, 7, members[0])
	assert.ErrorIs(t, err, ErrSlotOccupied)
	assert.Equal(t, firstValue, *g.Teams[0].Slots[7], "a filled slot is never overwritten")
}

func TestInactiveTeamSkipsRounds(t *testing.T) {
	rules := DefaultRules()
	rules.TeamCount = 3
	g := NewRondoGame(rules)
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn

	// Only teams 1 and 2 get members; team 3 stays empty.
	m1, m2 := uuid.New(), uuid.New()
	require.NoError(t, g.AddMember(1, m1))
	require.NoError(t, g.AddMember(2, m2))
	require.NoError(t, g.Start(uuid.New()))

	host := uuid.New()
	require.NoError(t, g.DrawCard(host, 0))

	err := g.PlaceForTeam(3, 0, uuid.New())
	assert.ErrorIs(t, err, ErrTeamNotActive)

	// The round settles once the two active teams have placed.
	require.NoError(t, g.PlaceForTeam(1, 0, m1))
	assert.True(t, g.WaitingForPlacements)
	require.NoError(t, g.PlaceForTeam(2, 0, m2))
	assert.False(t, g.WaitingForPlacements)
	require.NotNil(t, mb.lastEventOfType(EventRoundSettled))
}

func TestGameEndsAtMaxRounds(t *testing.T) {
	rules := DefaultRules()
	rules.MaxRounds = 3
	g, members, mb := setupTestGame(t, rules)
	host := uuid.New()

	for round := 0; round < 3; round++ {
		require.NoError(t, g.DrawCard(host, round))
		require.NoError(t, g.PlaceForTeam(1, round, members[0]))
		require.NoError(t, g.PlaceForTeam(2, round, members[1]))
	}

	assert.Equal(t, PhaseEnded, g.Phase, "round cap alone ends the game, boards far from full")
	require.Len(t, g.FinalRanking, 2)

	ev := mb.lastEventOfType(EventGameEnd)
	require.NotNil(t, ev)
	assert.Contains(t, ev.Payload, "ranking")

	// No further mutation is accepted.
	assert.ErrorIs(t, g.DrawCard(host, 10), ErrGameEnded)
	assert.ErrorIs(t, g.PlaceForTeam(1, 10, members[0]), ErrGameEnded)
	assert.ErrorIs(t, g.Start(host), ErrGameEnded)
}

func TestGameEndsEarlyWhenBoardsFull(t *testing.T) {
	rules := DefaultRules()
	rules.MaxRounds = 25 // higher than the slot count, boards fill first
	g, members, _ := setupTestGame(t, rules)
	host := uuid.New()

	for round := 0; round < BoardSize; round++ {
		require.NoError(t, g.DrawCard(host, round))
		require.NoError(t, g.PlaceForTeam(1, round, members[0]))
		require.NoError(t, g.PlaceForTeam(2, round, members[1]))
	}

	assert.Equal(t, PhaseEnded, g.Phase)
	assert.Equal(t, BoardSize, g.Round, "full boards end the game before the round cap")
	checkScoreInvariant(t, g)

	// Sequentially filled ring is a single run of 20.
	assert.Equal(t, 300, g.Teams[0].Score)
	assert.Equal(t, 300, g.Teams[1].Score)
}

func TestFinalRankingFrozen(t *testing.T) {
	rules := DefaultRules()
	rules.MaxRounds = 2
	g, members, _ := setupTestGame(t, rules)
	host := uuid.New()

	// Team 1 builds a run of 2, team 2 two singletons.
	require.NoError(t, g.DrawCard(host, 0))
	require.NoError(t, g.PlaceForTeam(1, 0, members[0]))
	require.NoError(t, g.PlaceForTeam(2, 0, members[1]))
	require.NoError(t, g.DrawCard(host, 1))
	require.NoError(t, g.PlaceForTeam(1, 1, members[0]))
	require.NoError(t, g.PlaceForTeam(2, 10, members[1]))

	require.Equal(t, PhaseEnded, g.Phase)
	require.Len(t, g.FinalRanking, 2)
	assert.Equal(t, FinalRankingEntry{TeamNumber: 1, Score: 1, Rank: 1}, g.FinalRanking[0])
	assert.Equal(t, FinalRankingEntry{TeamNumber: 2, Score: 0, Rank: 2}, g.FinalRanking[1])

	frozen := g.Snapshot().FinalRanking
	assert.Equal(t, g.FinalRanking, frozen)
}

func TestDrawRandomConsumesWholeDeck(t *testing.T) {
	rules := DefaultRules()
	rules.MaxRounds = 25
	g, members, _ := setupTestGame(t, rules)
	host := uuid.New()

	seen := make(map[int]bool)
	for round := 0; round < BoardSize; round++ {
		require.NoError(t, g.DrawRandom(host))
		require.NotNil(t, g.CurrentDraw)
		assert.False(t, seen[g.CurrentDraw.Index], "drawn index repeated")
		seen[g.CurrentDraw.Index] = true

		require.NoError(t, g.PlaceForTeam(1, round, members[0]))
		require.NoError(t, g.PlaceForTeam(2, round, members[1]))
	}
	assert.Equal(t, PhaseEnded, g.Phase)
	assert.Len(t, seen, BoardSize)
}

func TestOnGameEndCallback(t *testing.T) {
	rules := DefaultRules()
	rules.MaxRounds = 1
	g := NewRondoGame(rules)

	m1, m2 := uuid.New(), uuid.New()
	require.NoError(t, g.AddMember(1, m1))
	require.NoError(t, g.AddMember(2, m2))

	done := make(chan []FinalRankingEntry, 1)
	g.OnGameEnd = func(lobbyID uuid.UUID, ranking []FinalRankingEntry) {
		done <- ranking
	}

	host := uuid.New()
	require.NoError(t, g.Start(host))
	require.NoError(t, g.DrawCard(host, 0))
	require.NoError(t, g.PlaceForTeam(1, 0, m1))
	require.NoError(t, g.PlaceForTeam(2, 0, m2))

	ranking := <-done
	require.Len(t, ranking, 2)
	assert.Equal(t, 1, ranking[0].Rank)
}

func TestSnapshotDetachedFromLiveState(t *testing.T) {
	g, members, _ := setupTestGame(t, DefaultRules())
	host := uuid.New()
	require.NoError(t, g.DrawCard(host, 0))
	require.NoError(t, g.PlaceForTeam(1, 2, members[0]))

	snap := g.Snapshot()
	require.NotNil(t, snap.Teams[0].Slots[2])
	before := *snap.Teams[0].Slots[2]

	// Mutating the live game must not show through the snapshot.
	require.NoError(t, g.PlaceForTeam(2, 2, members[1]))
	require.NoError(t, g.DrawCard(host, 1))
	require.NoError(t, g.PlaceForTeam(1, 3, members[0]))

	assert.Equal(t, before, *snap.Teams[0].Slots[2])
	assert.Nil(t, snap.Teams[0].Slots[3])
	assert.Equal(t, 1, snap.Round)
}
