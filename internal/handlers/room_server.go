// internal/handlers/room_server.go
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// RoomServer owns the room store and the HTTP surface for creating rooms.
type RoomServer struct {
	Rooms       *RoomStore
	Log         *logrus.Logger
	TurnTimeout time.Duration
}

func NewRoomServer(log *logrus.Logger, turnTimeout time.Duration) *RoomServer {
	return &RoomServer{
		Rooms:       NewRoomStore(),
		Log:         log,
		TurnTimeout: turnTimeout,
	}
}

// CreateRoomHandler creates an empty room and returns its id. The caller
// also receives a guest session cookie, so the follow-up WebSocket join is
// already authenticated.
func (rs *RoomServer) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, _, err := EnsureGuest(w, r, "Guest"); err != nil {
		rs.Log.Warnf("guest resolution failed on room create: %v", err)
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	room := NewRoom(rs.Log, rs.TurnTimeout, rs.Rooms.DeleteRoom)
	rs.Rooms.AddRoom(room)
	rs.Log.Infof("room %s created", room.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"room_id": room.ID,
	})
}
