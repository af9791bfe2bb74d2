// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/feliskatz/ratatat/internal/game"
	"github.com/feliskatz/ratatat/internal/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ClientMessage is the structure for incoming WebSocket messages in a room.
// Index fields default to 0 when absent; the engine validates bounds.
type ClientMessage struct {
	Type string `json:"type"`

	// Index is the hand slot for replace, peek and draw_two_resolve.
	Index int `json:"index"`

	// MyIndex, OpponentID and OpponentIndex parameterize a swap.
	MyIndex       int    `json:"my_index"`
	OpponentID    string `json:"opponent_id,omitempty"`
	OpponentIndex int    `json:"opponent_index"`

	// Action selects the draw_two_resolve mode: "use" or "discard".
	Action string `json:"action,omitempty"`
}

// RoomWSHandler upgrades the HTTP connection to WebSocket for a specific
// room. It resolves the guest identity, upgrades, seats the player, and then
// blocks in the read loop until the connection dies.
func RoomWSHandler(logger *logrus.Logger, rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Extract room ID from URL path: /rooms/ws/{room_id}
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/rooms/ws/"), "/")
		if len(pathParts) < 1 || pathParts[0] == "" {
			http.Error(w, "Missing room_id in path (/rooms/ws/{room_id})", http.StatusBadRequest)
			return
		}
		roomID, err := uuid.Parse(pathParts[0])
		if err != nil {
			http.Error(w, "Invalid room_id format", http.StatusBadRequest)
			return
		}

		room, ok := rs.Rooms.GetRoom(roomID)
		if !ok {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}

		// Resolve the guest identity before the upgrade; the minted session
		// cookie rides out on the 101 response.
		requested := sanitizeName(r.URL.Query().Get("name"), "")
		fallback := requested
		if fallback == "" {
			fallback = "Guest"
		}
		playerID, tokenName, err := EnsureGuest(w, r, fallback)
		if err != nil {
			logger.Warnf("Guest resolution failed for room %s: %v", roomID, err)
			http.Error(w, "Authentication failed", http.StatusForbidden)
			return
		}
		name := requested
		if name == "" {
			name = tokenName
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"ratatat"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for room %s: %v", roomID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "ratatat" {
			logger.Warnf("Client for room %s connected with invalid subprotocol: %s", roomID, c.Subprotocol())
			c.Close(websocket.StatusCode(BadSubprotocolError), "Client must use the 'ratatat' subprotocol.")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, roomID.String())

		if err := room.Join(playerID, name, c); err != nil {
			logger.Warnf("Player %s could not join room %s: %v", playerID, roomID, err)
			sendWsError(r.Context(), c, string(game.CodeOf(err)), err.Error())
			c.Close(websocket.StatusPolicyViolation, "Room not joinable.")
			return
		}
		logger.Infof("Player %s (%s) joined room %s", playerID, name, roomID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		readRoomMessages(ctx, c, room, playerID, logger)

		logger.Infof("Player %s WebSocket read loop exited for room %s.", playerID, roomID)
		room.Leave(playerID, name, c)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, roomID.String(), nil)
	}
}

// readRoomMessages continuously reads messages from a client's connection,
// unmarshals them, and routes them into the room. It exits upon error or
// context cancellation.
func readRoomMessages(ctx context.Context, c *websocket.Conn, room *Room, playerID uuid.UUID, logger *logrus.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for player %s in room %s.", playerID, room.ID)
			} else if strings.Contains(err.Error(), "context canceled") {
				logger.Infof("WebSocket context canceled for player %s in room %s.", playerID, room.ID)
			} else {
				logger.Warnf("Error reading from WebSocket for player %s in room %s: %v (Status: %d)", playerID, room.ID, err, status)
			}
			return
		}

		if msgType != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from player %s in room %s. Ignoring.", msgType, playerID, room.ID)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Invalid JSON from player %s in room %s: %v. Data: %s", playerID, room.ID, err, string(data))
			sendWsError(ctx, c, "", "Invalid JSON format.")
			continue
		}

		logger.Debugf("Received action '%s' from player %s in room %s.", msg.Type, playerID, room.ID)

		switch msg.Type {
		case "ping":
			sendWsMessage(ctx, c, map[string]string{"type": "pong"})
		default:
			room.HandleAction(playerID, c, msg)
		}

		select {
		case <-ctx.Done():
			logger.Infof("Context canceled after processing message for player %s in room %s.", playerID, room.ID)
			return
		default:
		}
	}
}

// sendWsMessage marshals a message and sends it to the WebSocket client.
// Includes logging for errors and uses a write timeout.
func sendWsMessage(ctx context.Context, c *websocket.Conn, message interface{}) {
	if c == nil {
		log.Println("Error: Attempted to send WebSocket message on nil connection.")
		return
	}
	msgBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling WebSocket message: %v", err)
		return
	}

	// Use a dedicated context with timeout for the write operation.
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = c.Write(writeCtx, websocket.MessageText, msgBytes)
	if err != nil {
		status := websocket.CloseStatus(err)
		if strings.Contains(err.Error(), "context deadline exceeded") {
			log.Printf("Timeout writing WebSocket message: %v", err)
		} else if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			log.Printf("Error writing WebSocket message: %v (Status: %d)", err, status)
		}
		// Let the read loop handle connection closure detection.
	}
}

// sendWsError sends a structured error message to the client. code carries
// the engine's stable error code when there is one.
func sendWsError(ctx context.Context, c *websocket.Conn, code, message string) {
	payload := map[string]interface{}{
		"type":    "error",
		"message": message,
	}
	if code != "" {
		payload["code"] = code
	}
	sendWsMessage(ctx, c, payload)
}
