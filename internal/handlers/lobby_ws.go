package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rondo-game/rondo/internal/database"
	"github.com/rondo-game/rondo/internal/lobby"
	"github.com/rondo-game/rondo/internal/middleware"
)

// lobbyMessage is the shape of incoming WebSocket messages in a lobby.
type lobbyMessage struct {
	Type string `json:"type"`
	Team *int   `json:"team,omitempty"`
}

// LobbyWSHandler handles the lobby WebSocket at /lobby/ws/{lobby_id}: team
// picks, ready flags and the host's start_game command.
func LobbyWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/lobby/ws/"), "/")
		if len(pathParts) < 1 || pathParts[0] == "" {
			http.Error(w, "Missing lobby_id in path (/lobby/ws/{lobby_id})", http.StatusBadRequest)
			return
		}
		lobbyID, err := uuid.Parse(pathParts[0])
		if err != nil {
			http.Error(w, "Invalid lobby_id format", http.StatusBadRequest)
			return
		}

		l, ok := gs.LobbyStore.GetLobby(lobbyID)
		if !ok {
			http.Error(w, "Lobby not found", http.StatusNotFound)
			return
		}

		userID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			logger.Warnf("User authentication failed for lobby %s: %v", lobbyID, err)
			http.Error(w, "Authentication failed", http.StatusForbidden)
			return
		}

		username := "Guest"
		if database.DB != nil {
			if u, err := database.GetUserByID(r.Context(), userID); err == nil && u.Username != "" {
				username = u.Username
			}
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"lobby"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for lobby %s: %v", lobbyID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "lobby" {
			c.Close(websocket.StatusPolicyViolation, "Client must use the 'lobby' subprotocol.")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := &lobby.Connection{
			UserID:   userID,
			Username: username,
			Cancel:   cancel,
			OutChan:  make(chan map[string]interface{}, 32),
			IsHost:   userID == l.HostUserID,
		}
		l.AddConnection(conn)

		go lobbyWritePump(ctx, c, conn, logger)

		readLobbyMessages(ctx, c, gs, l, conn, logger)

		l.RemoveUser(userID)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
	}
}

// lobbyWritePump drains the connection's out channel onto the wire.
func lobbyWritePump(ctx context.Context, c *websocket.Conn, conn *lobby.Connection, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Errorf("Failed to marshal lobby message for user %s: %v", conn.UserID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Failed to write lobby message to user %s: %v", conn.UserID, err)
				return
			}
		}
	}
}

// readLobbyMessages routes incoming lobby commands.
func readLobbyMessages(ctx context.Context, c *websocket.Conn, gs *GameServer, l *lobby.Lobby, conn *lobby.Connection, logger *logrus.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("Lobby WebSocket closed normally for user %s.", conn.UserID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("Error reading lobby WebSocket for user %s: %v", conn.UserID, err)
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg lobbyMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.WriteError("Invalid JSON format.")
			continue
		}

		switch msg.Type {
		case "choose_team":
			if msg.Team == nil {
				conn.WriteError("choose_team requires a team number.")
				continue
			}
			if err := l.ChooseTeam(conn.UserID, *msg.Team); err != nil {
				conn.WriteError(err.Error())
			}

		case "ready":
			l.MarkReady(conn.UserID, true)

		case "unready":
			l.MarkReady(conn.UserID, false)

		case "start_game":
			if conn.UserID != l.HostUserID {
				conn.WriteError("Only the host can start the game.")
				continue
			}
			if l.InGame {
				conn.WriteError("A game is already in progress.")
				continue
			}
			if !l.AllReady() {
				conn.WriteError("Everyone with a team pick must be ready.")
				continue
			}
			g := gs.NewRondoGameFromLobby(ctx, l)
			if err := g.Start(conn.UserID); err != nil {
				gs.GameStore.DeleteGame(g.ID)
				l.ResetAfterGame()
				conn.WriteError(err.Error())
				continue
			}
			l.BroadcastAll(map[string]interface{}{
				"type":   "game_start",
				"gameId": g.ID.String(),
			})

		case "leave":
			return

		case "ping":
			conn.Write(map[string]interface{}{"type": "pong"})

		default:
			conn.WriteError("Unknown lobby command: " + msg.Type)
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}
