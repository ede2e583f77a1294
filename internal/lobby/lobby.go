package lobby

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/rondo-game/rondo/internal/game"
)

// Lobby is an ephemeral grouping of users picking teams before a game is
// spawned. Roster state lives here until Start, when it is copied into the
// engine's team boards and frozen.
type Lobby struct {
	ID         uuid.UUID `json:"id"`
	HostUserID uuid.UUID `json:"hostUserID"`
	Name       string    `json:"name"`
	Type       string    `json:"type"` // "private" or "public"

	// Users maps userID -> joined. Invited-but-absent users are false.
	Users map[uuid.UUID]bool `json:"-"`

	// Connections holds the live WebSocket presences of joined users.
	Connections map[uuid.UUID]*Connection `json:"-"`

	// ReadyStates holds userID -> ready flag.
	ReadyStates map[uuid.UUID]bool `json:"-"`

	// TeamChoices holds userID -> chosen team number (1-based). Users with
	// no entry have not picked a team yet and are left out of the game.
	TeamChoices map[uuid.UUID]int `json:"-"`

	Rules game.Rules `json:"rules"`

	GameID uuid.UUID `json:"gameId,omitempty"`
	InGame bool      `json:"inGame"`

	// OnEmpty is called when the last user leaves, typically wired to the
	// store's DeleteLobby.
	OnEmpty func(lobbyID uuid.UUID) `json:"-"`

	Mu sync.Mutex `json:"-"`
}

// Connection is a single user's presence in the lobby.
type Connection struct {
	UserID   uuid.UUID
	Username string
	Cancel   func()
	OutChan  chan map[string]interface{}
	IsHost   bool
}

// Write pushes a message onto the user's out channel without blocking.
// Messages to a full or closed channel are dropped and logged.
func (conn *Connection) Write(msg map[string]interface{}) {
	select {
	case conn.OutChan <- msg:
	default:
		msgType, _ := msg["type"].(string)
		log.Printf("Lobby connection for user %s full or closed; dropped message type %q.", conn.UserID, msgType)
	}
}

// WriteError sends an error object to the user.
func (conn *Connection) WriteError(msg string) {
	conn.Write(map[string]interface{}{
		"type":    "error",
		"message": msg,
	})
}

// NewLobbyWithDefaults creates an ephemeral lobby with the reference rules.
func NewLobbyWithDefaults(hostID uuid.UUID) *Lobby {
	lobbyID, _ := uuid.NewRandom()
	return &Lobby{
		ID:          lobbyID,
		HostUserID:  hostID,
		Type:        "private",
		Users:       make(map[uuid.UUID]bool),
		Connections: make(map[uuid.UUID]*Connection),
		ReadyStates: make(map[uuid.UUID]bool),
		TeamChoices: make(map[uuid.UUID]int),
		Rules:       game.DefaultRules(),
	}
}

// AddConnection registers a joined user's live connection.
func (l *Lobby) AddConnection(conn *Connection) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	l.Users[conn.UserID] = true
	l.Connections[conn.UserID] = conn
	if _, ok := l.ReadyStates[conn.UserID]; !ok {
		l.ReadyStates[conn.UserID] = false
	}
	l.broadcastStateLocked()
}

// RemoveUser drops a user from the lobby; fires OnEmpty when nobody is left.
func (l *Lobby) RemoveUser(userID uuid.UUID) {
	l.Mu.Lock()
	delete(l.Users, userID)
	delete(l.Connections, userID)
	delete(l.ReadyStates, userID)
	delete(l.TeamChoices, userID)
	empty := len(l.Connections) == 0
	if !empty {
		l.broadcastStateLocked()
	}
	onEmpty := l.OnEmpty
	id := l.ID
	l.Mu.Unlock()

	if empty && onEmpty != nil {
		onEmpty(id)
	}
}

// ChooseTeam records a user's team pick. Team numbers run 1..TeamCount.
func (l *Lobby) ChooseTeam(userID uuid.UUID, team int) error {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if l.InGame {
		return game.ErrGameNotInLobby
	}
	if team < 1 || team > l.Rules.TeamCount {
		return game.ErrUnknownTeam
	}
	l.TeamChoices[userID] = team
	l.broadcastStateLocked()
	return nil
}

// MarkReady flips a user's ready flag.
func (l *Lobby) MarkReady(userID uuid.UUID, ready bool) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if _, ok := l.Users[userID]; !ok {
		return
	}
	l.ReadyStates[userID] = ready
	l.broadcastStateLocked()
}

// AllReady reports whether every joined user with a team pick is ready and
// at least one pick exists.
func (l *Lobby) AllReady() bool {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if len(l.TeamChoices) == 0 {
		return false
	}
	for uid := range l.TeamChoices {
		if !l.ReadyStates[uid] {
			return false
		}
	}
	return true
}

// MarkInGame stamps the lobby with its spawned game.
func (l *Lobby) MarkInGame(gameID uuid.UUID) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	l.GameID = gameID
	l.InGame = true
	l.broadcastStateLocked()
}

// ResetAfterGame clears ready flags so the lobby can host another game.
func (l *Lobby) ResetAfterGame() {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	l.InGame = false
	for uid := range l.ReadyStates {
		l.ReadyStates[uid] = false
	}
	l.broadcastStateLocked()
}

// BroadcastAll sends a message to every connected user.
func (l *Lobby) BroadcastAll(msg map[string]interface{}) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	for _, conn := range l.Connections {
		conn.Write(msg)
	}
}

// State returns a wire-friendly view of the lobby roster.
func (l *Lobby) State() map[string]interface{} {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	return l.stateLocked()
}

// stateLocked builds the roster view. Assumes lock is held.
func (l *Lobby) stateLocked() map[string]interface{} {
	users := make([]map[string]interface{}, 0, len(l.Connections))
	for uid, conn := range l.Connections {
		entry := map[string]interface{}{
			"id":       uid.String(),
			"username": conn.Username,
			"ready":    l.ReadyStates[uid],
			"isHost":   uid == l.HostUserID,
		}
		if team, ok := l.TeamChoices[uid]; ok {
			entry["team"] = team
		}
		users = append(users, entry)
	}
	state := map[string]interface{}{
		"type":      "lobby_state",
		"lobbyId":   l.ID.String(),
		"name":      l.Name,
		"inGame":    l.InGame,
		"teamCount": l.Rules.TeamCount,
		"maxRounds": l.Rules.MaxRounds,
		"users":     users,
	}
	if l.InGame {
		state["gameId"] = l.GameID.String()
	}
	return state
}

// broadcastStateLocked pushes the roster view to everyone. Assumes lock is held.
func (l *Lobby) broadcastStateLocked() {
	msg := l.stateLocked()
	for _, conn := range l.Connections {
		conn.Write(msg)
	}
}
