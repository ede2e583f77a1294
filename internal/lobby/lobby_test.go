package lobby

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rondo-game/rondo/internal/game"
)

func newTestConnection(userID uuid.UUID, name string) *Connection {
	return &Connection{
		UserID:   userID,
		Username: name,
		OutChan:  make(chan map[string]interface{}, 16),
	}
}

func TestChooseTeamBounds(t *testing.T) {
	host := uuid.New()
	l := NewLobbyWithDefaults(host)
	l.AddConnection(newTestConnection(host, "host"))

	require.NoError(t, l.ChooseTeam(host, 1))
	require.NoError(t, l.ChooseTeam(host, 2))
	assert.ErrorIs(t, l.ChooseTeam(host, 0), game.ErrUnknownTeam)
	assert.ErrorIs(t, l.ChooseTeam(host, 3), game.ErrUnknownTeam)
}

func TestAllReadyRequiresEveryPickedUser(t *testing.T) {
	host := uuid.New()
	guest := uuid.New()
	l := NewLobbyWithDefaults(host)
	l.AddConnection(newTestConnection(host, "host"))
	l.AddConnection(newTestConnection(guest, "guest"))

	assert.False(t, l.AllReady(), "no team picks yet")

	require.NoError(t, l.ChooseTeam(host, 1))
	require.NoError(t, l.ChooseTeam(guest, 2))
	l.MarkReady(host, true)
	assert.False(t, l.AllReady())

	l.MarkReady(guest, true)
	assert.True(t, l.AllReady())

	l.MarkReady(guest, false)
	assert.False(t, l.AllReady())
}

func TestRemoveLastUserFiresOnEmpty(t *testing.T) {
	host := uuid.New()
	guest := uuid.New()
	l := NewLobbyWithDefaults(host)

	var emptied []uuid.UUID
	l.OnEmpty = func(id uuid.UUID) { emptied = append(emptied, id) }

	l.AddConnection(newTestConnection(host, "host"))
	l.AddConnection(newTestConnection(guest, "guest"))

	l.RemoveUser(guest)
	assert.Empty(t, emptied)

	l.RemoveUser(host)
	require.Len(t, emptied, 1)
	assert.Equal(t, l.ID, emptied[0])
}

func TestStateCarriesTeamsAndReady(t *testing.T) {
	host := uuid.New()
	l := NewLobbyWithDefaults(host)
	l.Name = "friday night"
	l.AddConnection(newTestConnection(host, "host"))
	require.NoError(t, l.ChooseTeam(host, 2))
	l.MarkReady(host, true)

	state := l.State()
	assert.Equal(t, "lobby_state", state["type"])
	assert.Equal(t, "friday night", state["name"])
	users := state["users"].([]map[string]interface{})
	require.Len(t, users, 1)
	assert.Equal(t, 2, users[0]["team"])
	assert.Equal(t, true, users[0]["ready"])
	assert.Equal(t, true, users[0]["isHost"])
}
