package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rondo-game/rondo/internal/auth"
	"github.com/rondo-game/rondo/internal/game"
	"github.com/rondo-game/rondo/internal/lobby"
)

var validLobbyTypes = map[string]bool{
	"private": true,
	"public":  true,
}

type createLobbyRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`

	// Rules carries overrides for the reference rules, e.g.
	// {"teamCount": 4, "maxRounds": 12}.
	Rules map[string]interface{} `json:"rules,omitempty"`
}

// CreateLobbyHandler creates an ephemeral in-memory lobby. No DB writes; the
// OnEmpty callback removes it from the store when the last user leaves.
func CreateLobbyHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie := r.Header.Get("Cookie")
		if !strings.Contains(cookie, "auth_token=") {
			http.Error(w, "missing auth_token", http.StatusUnauthorized)
			return
		}
		token := extractCookieToken(cookie, "auth_token")

		userIDStr, err := auth.AuthenticateJWT(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			http.Error(w, "invalid user id format in token", http.StatusBadRequest)
			return
		}

		var req createLobbyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
			http.Error(w, "bad lobby request payload", http.StatusBadRequest)
			return
		}
		if req.Type != "" && !validLobbyTypes[req.Type] {
			http.Error(w, "invalid lobby type", http.StatusBadRequest)
			return
		}

		l := lobby.NewLobbyWithDefaults(userID)
		l.Name = req.Name
		if req.Type != "" {
			l.Type = req.Type
		}
		if req.Rules != nil {
			rules, err := game.ParseRules(req.Rules, l.Rules)
			if err != nil {
				http.Error(w, "invalid rules: "+err.Error(), http.StatusBadRequest)
				return
			}
			l.Rules = rules
		}

		l.OnEmpty = func(lobbyID uuid.UUID) {
			gs.LobbyStore.DeleteLobby(lobbyID)
		}

		gs.LobbyStore.AddLobby(l)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(l)
	}
}

// ListLobbiesHandler returns the in-memory lobby store.
func ListLobbiesHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie := r.Header.Get("Cookie")
		if !strings.Contains(cookie, "auth_token=") {
			http.Error(w, "missing auth_token", http.StatusUnauthorized)
			return
		}
		token := extractCookieToken(cookie, "auth_token")
		if _, err := auth.AuthenticateJWT(token); err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}

		lobbies := gs.LobbyStore.GetLobbies()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(lobbies)
	}
}
