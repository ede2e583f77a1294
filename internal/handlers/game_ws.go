package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rondo-game/rondo/internal/game"
	"github.com/rondo-game/rondo/internal/middleware"
)

// GameMessage is the shape of incoming WebSocket messages during a game.
type GameMessage struct {
	Type string `json:"type"`

	// Index selects an explicit deck index for draw_card. Nil with
	// Random=true asks for a uniform draw among the undrawn cards.
	Index  *int `json:"index,omitempty"`
	Random bool `json:"random,omitempty"`

	// Slot is the board position for place.
	Slot *int `json:"slot,omitempty"`

	Payload map[string]interface{} `json:"payload,omitempty"`
}

// GameWSHandler upgrades the HTTP connection to WebSocket for a specific
// game instance. It authenticates the user, verifies they belong to the
// game, registers the connection, then runs the read loop.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Path shape: /game/ws/{game_id}
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/game/ws/"), "/")
		if len(pathParts) < 1 || pathParts[0] == "" {
			http.Error(w, "Missing game_id in path (/game/ws/{game_id})", http.StatusBadRequest)
			return
		}
		gameID, err := uuid.Parse(pathParts[0])
		if err != nil {
			http.Error(w, "Invalid game_id format", http.StatusBadRequest)
			return
		}

		g, ok := gs.GameStore.GetGame(gameID)
		if !ok {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}

		// Authenticate before upgrading so the Set-Cookie for a fresh
		// ephemeral user still reaches the client.
		userID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			logger.Warnf("User authentication failed for game %s: %v", gameID, err)
			http.Error(w, "Authentication failed", http.StatusForbidden)
			return
		}

		_, onTeam := g.TeamOf(userID)
		isHost := false
		if l, found := gs.LobbyStore.GetLobby(g.LobbyID); found {
			isHost = l.HostUserID == userID
		}
		if !onTeam && !isHost {
			logger.Warnf("User %s is not part of game %s.", userID, gameID)
			http.Error(w, "You are not part of this game", http.StatusForbidden)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for game %s: %v", gameID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "game" {
			c.Close(websocket.StatusPolicyViolation, "Client must use the 'game' subprotocol.")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		g.Mu.Lock()
		if g.BroadcastFn == nil {
			g.BroadcastFn = createBroadcastFunc(gs, g, logger)
		}
		if g.BroadcastToUserFn == nil {
			g.BroadcastToUserFn = createBroadcastToUserFunc(gs, g, logger)
		}
		g.Mu.Unlock()

		gs.RegisterGameConn(gameID, userID, c)

		// Sync the newcomer with the full current state.
		snap := g.Snapshot()
		sendWsMessage(c, game.GameEvent{Type: game.EventSyncState, State: &snap})

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		readGameMessages(ctx, c, gs, g, userID, isHost, logger)

		gs.UnregisterGameConn(gameID, userID, c)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
	}
}

// createBroadcastFunc returns a function suitable for RondoGame.BroadcastFn.
// It is called while the game lock is held, so the write happens on a
// separate goroutine against a snapshot of the connection registry.
func createBroadcastFunc(gs *GameServer, g *game.RondoGame, logger *logrus.Logger) func(ev game.GameEvent) {
	return func(ev game.GameEvent) {
		conns := gs.gameConnsSnapshot(g.ID)
		if len(conns) == 0 {
			return
		}
		msgBytes, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("Failed to marshal broadcast event (%s) for game %s: %v", ev.Type, g.ID, err)
			return
		}
		go func(conns map[uuid.UUID]*websocket.Conn, data []byte, gameID uuid.UUID) {
			for uid, conn := range conns {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					logger.Warnf("Failed to write broadcast message to user %s in game %s: %v", uid, gameID, err)
				}
			}
		}(conns, msgBytes, g.ID)
	}
}

// createBroadcastToUserFunc returns a function suitable for
// RondoGame.BroadcastToUserFn. Also called while the game lock is held.
func createBroadcastToUserFunc(gs *GameServer, g *game.RondoGame, logger *logrus.Logger) func(userID uuid.UUID, ev game.GameEvent) {
	return func(userID uuid.UUID, ev game.GameEvent) {
		conns := gs.gameConnsSnapshot(g.ID)
		conn, ok := conns[userID]
		if !ok {
			return
		}
		msgBytes, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("Failed to marshal private event (%s) for user %s in game %s: %v", ev.Type, userID, g.ID, err)
			return
		}
		go func(conn *websocket.Conn, data []byte) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				logger.Warnf("Failed to write private message to user %s in game %s: %v", userID, g.ID, err)
			}
		}(conn, msgBytes)
	}
}

// readGameMessages reads client messages and routes them to the engine.
// Draw and start commands are host-only; placements go to the caller's own
// team. Engine errors come back to the sender as structured error messages.
func readGameMessages(ctx context.Context, c *websocket.Conn, gs *GameServer, g *game.RondoGame, userID uuid.UUID, isHost bool, logger *logrus.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for user %s in game %s.", userID, g.ID)
			} else if strings.Contains(err.Error(), "context canceled") {
				logger.Infof("WebSocket context canceled for user %s in game %s.", userID, g.ID)
			} else {
				logger.Warnf("Error reading from WebSocket for user %s in game %s: %v (Status: %d)", userID, g.ID, err, status)
			}
			return
		}

		if msgType != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from user %s in game %s. Ignoring.", msgType, userID, g.ID)
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Invalid JSON received from user %s in game %s: %v", userID, g.ID, err)
			sendWsError(c, "invalid_json", "Invalid JSON format.")
			continue
		}

		logger.Debugf("Received action '%s' from user %s in game %s.", msg.Type, userID, g.ID)

		switch msg.Type {
		case "start":
			if !isHost {
				sendWsError(c, "not_host", "Only the host can start the game.")
				continue
			}
			if err := g.Start(userID); err != nil {
				sendWsError(c, errKind(err), err.Error())
			}

		case "draw_card":
			if !isHost {
				sendWsError(c, "not_host", "Only the host can draw.")
				continue
			}
			var drawErr error
			if msg.Random || msg.Index == nil {
				drawErr = g.DrawRandom(userID)
			} else {
				drawErr = g.DrawCard(userID, *msg.Index)
			}
			if drawErr != nil {
				sendWsError(c, errKind(drawErr), drawErr.Error())
			}

		case "place":
			team, onTeam := g.TeamOf(userID)
			if !onTeam {
				sendWsError(c, "not_on_team", "You are not on a team in this game.")
				continue
			}
			if msg.Slot == nil {
				sendWsError(c, "missing_slot", "place requires a slot.")
				continue
			}
			if err := g.PlaceForTeam(team, *msg.Slot, userID); err != nil {
				sendWsError(c, errKind(err), err.Error())
			}

		case "sync":
			snap := g.Snapshot()
			sendWsMessage(c, game.GameEvent{Type: game.EventSyncState, State: &snap})

		case "ping":
			sendWsMessage(c, map[string]string{"type": "pong"})

		default:
			logger.Warnf("Unknown action type '%s' from user %s in game %s.", msg.Type, userID, g.ID)
			sendWsError(c, "unknown_action", fmt.Sprintf("Unknown action type: %s", msg.Type))
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// errKind maps engine sentinels onto stable wire codes.
func errKind(err error) string {
	switch {
	case errors.Is(err, game.ErrNotEnoughTeams):
		return "not_enough_teams"
	case errors.Is(err, game.ErrInvalidDraw):
		return "invalid_draw"
	case errors.Is(err, game.ErrDeckExhausted):
		return "deck_exhausted"
	case errors.Is(err, game.ErrRoundInProgress):
		return "round_in_progress"
	case errors.Is(err, game.ErrNoActiveDraw):
		return "no_active_draw"
	case errors.Is(err, game.ErrSlotOccupied):
		return "slot_occupied"
	case errors.Is(err, game.ErrAlreadyPlacedThisRound):
		return "already_placed"
	case errors.Is(err, game.ErrGameNotInLobby):
		return "game_not_in_lobby"
	case errors.Is(err, game.ErrGameNotStarted):
		return "game_not_started"
	case errors.Is(err, game.ErrGameEnded):
		return "game_ended"
	case errors.Is(err, game.ErrInvalidSlot):
		return "invalid_slot"
	case errors.Is(err, game.ErrUnknownTeam):
		return "unknown_team"
	case errors.Is(err, game.ErrTeamNotActive):
		return "team_not_active"
	default:
		return "internal_error"
	}
}

// sendWsMessage marshals a message and sends it to the WebSocket client with
// a write timeout.
func sendWsMessage(c *websocket.Conn, message interface{}) {
	if c == nil {
		log.Println("Error: Attempted to send WebSocket message on nil connection.")
		return
	}
	msgBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling WebSocket message: %v", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Write(writeCtx, websocket.MessageText, msgBytes); err != nil {
		status := websocket.CloseStatus(err)
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			log.Printf("Error writing WebSocket message: %v (Status: %d)", err, status)
		}
	}
}

// sendWsError sends a structured error message to the client.
func sendWsError(c *websocket.Conn, kind, errorMsg string) {
	sendWsMessage(c, map[string]interface{}{
		"type":    "error",
		"kind":    kind,
		"message": errorMsg,
	})
}
