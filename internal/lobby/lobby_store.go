package lobby

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// LobbyStore manages active ephemeral lobbies in memory.
type LobbyStore struct {
	mu      sync.Mutex
	lobbies map[uuid.UUID]*Lobby
}

// NewLobbyStore initializes and returns an empty LobbyStore.
func NewLobbyStore() *LobbyStore {
	return &LobbyStore{
		lobbies: make(map[uuid.UUID]*Lobby),
	}
}

// AddLobby adds a lobby to the store. Configure the lobby's OnEmpty callback
// before adding it so it cleans itself up when the last user leaves.
func (s *LobbyStore) AddLobby(l *Lobby) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.lobbies[l.ID]; exists {
		log.Printf("LobbyStore: lobby %s already exists, not overwriting.", l.ID)
		return
	}
	s.lobbies[l.ID] = l
}

// DeleteLobby removes a lobby by id, typically via OnEmpty.
func (s *LobbyStore) DeleteLobby(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lobbies, id)
}

// GetLobby retrieves a lobby by id.
func (s *LobbyStore) GetLobby(id uuid.UUID) (*Lobby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[id]
	return l, ok
}

// GetLobbies returns a copy of the map of active lobbies, safe to iterate
// while the store keeps changing.
func (s *LobbyStore) GetLobbies() map[uuid.UUID]*Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	lobbiesCopy := make(map[uuid.UUID]*Lobby, len(s.lobbies))
	for k, v := range s.lobbies {
		lobbiesCopy[k] = v
	}
	return lobbiesCopy
}
