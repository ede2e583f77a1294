package handlers

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/rondo-game/rondo/internal/database"
	"github.com/rondo-game/rondo/internal/game"
	"github.com/rondo-game/rondo/internal/lobby"
)

// GameServer glues the in-memory stores together and owns the registry of
// live game WebSocket connections. Broadcast closures built by the WS
// handlers read the registry through the server.
type GameServer struct {
	LobbyStore *lobby.LobbyStore
	GameStore  *game.GameStore
	Logf       func(f string, v ...interface{})

	connMu sync.Mutex
	// conns maps gameID -> userID -> live connection.
	conns map[uuid.UUID]map[uuid.UUID]*websocket.Conn
}

func NewGameServer() *GameServer {
	return &GameServer{
		LobbyStore: lobby.NewLobbyStore(),
		GameStore:  game.NewGameStore(),
		Logf:       log.Printf,
		conns:      make(map[uuid.UUID]map[uuid.UUID]*websocket.Conn),
	}
}

// RegisterGameConn records a user's live connection for a game. A newer
// connection replaces an older one for the same user.
func (gs *GameServer) RegisterGameConn(gameID, userID uuid.UUID, c *websocket.Conn) {
	gs.connMu.Lock()
	defer gs.connMu.Unlock()
	if gs.conns[gameID] == nil {
		gs.conns[gameID] = make(map[uuid.UUID]*websocket.Conn)
	}
	gs.conns[gameID][userID] = c
}

// UnregisterGameConn drops a user's connection, but only if it is still the
// registered one; a reconnect may already have replaced it.
func (gs *GameServer) UnregisterGameConn(gameID, userID uuid.UUID, c *websocket.Conn) {
	gs.connMu.Lock()
	defer gs.connMu.Unlock()
	if gs.conns[gameID][userID] == c {
		delete(gs.conns[gameID], userID)
		if len(gs.conns[gameID]) == 0 {
			delete(gs.conns, gameID)
		}
	}
}

// gameConnsSnapshot returns a copy of the live connections for a game.
func (gs *GameServer) gameConnsSnapshot(gameID uuid.UUID) map[uuid.UUID]*websocket.Conn {
	gs.connMu.Lock()
	defer gs.connMu.Unlock()
	out := make(map[uuid.UUID]*websocket.Conn, len(gs.conns[gameID]))
	for uid, c := range gs.conns[gameID] {
		out[uid] = c
	}
	return out
}

// NewRondoGameFromLobby spawns a game from a lobby's rules and team picks.
// The roster is copied in while the game is still in its lobby phase, then
// the termination callback is wired so a finished game persists its results
// and frees the lobby for another game.
func (gs *GameServer) NewRondoGameFromLobby(ctx context.Context, l *lobby.Lobby) *game.RondoGame {
	l.Mu.Lock()
	rules := l.Rules
	choices := make(map[uuid.UUID]int, len(l.TeamChoices))
	for uid, team := range l.TeamChoices {
		choices[uid] = team
	}
	lobbyID := l.ID
	l.Mu.Unlock()

	g := game.NewRondoGame(rules)
	g.LobbyID = lobbyID

	for uid, team := range choices {
		if err := g.AddMember(team, uid); err != nil {
			gs.Logf("error adding user %s to team %d in game %s: %v", uid, team, g.ID, err)
		}
	}

	gameID := g.ID
	g.OnGameEnd = func(endedLobbyID uuid.UUID, ranking []game.FinalRankingEntry) {
		gs.handleGameEnd(gameID, endedLobbyID, ranking)
	}

	gs.GameStore.AddGame(g)
	l.MarkInGame(g.ID)
	return g
}

// handleGameEnd persists the final standings and resets the lobby so the
// same group can play again.
func (gs *GameServer) handleGameEnd(gameID, lobbyID uuid.UUID, ranking []game.FinalRankingEntry) {
	if database.DB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := database.RecordGameResults(ctx, gameID, lobbyID, ranking); err != nil {
			gs.Logf("error recording results for game %s: %v", gameID, err)
		}
	}

	if l, ok := gs.LobbyStore.GetLobby(lobbyID); ok {
		l.ResetAfterGame()
		entries := make([]map[string]interface{}, 0, len(ranking))
		for _, e := range ranking {
			entries = append(entries, map[string]interface{}{
				"team":  e.TeamNumber,
				"score": e.Score,
				"rank":  e.Rank,
			})
		}
		l.BroadcastAll(map[string]interface{}{
			"type":    "game_finished",
			"gameId":  gameID.String(),
			"ranking": entries,
		})
	}
}
