// internal/handlers/room_server_test.go
package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feliskatz/ratatat/internal/auth"
	"github.com/google/uuid"
)

// TestCreateRoomHandler checks /rooms/create registers a joinable room and
// hands back its id plus a guest session cookie.
func TestCreateRoomHandler(t *testing.T) {
	auth.Init()
	rs := NewRoomServer(testLogger(), 0)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/rooms/create", nil)
	rs.CreateRoomHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	roomID, err := uuid.Parse(body["room_id"])
	if err != nil {
		t.Fatalf("room_id is not a uuid: %v", err)
	}
	if _, ok := rs.Rooms.GetRoom(roomID); !ok {
		t.Fatalf("created room %s not found in the store", roomID)
	}

	var gotCookie bool
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			gotCookie = true
		}
	}
	if !gotCookie {
		t.Fatalf("no guest session cookie on room create")
	}
}

func TestCreateRoomHandlerRejectsGet(t *testing.T) {
	auth.Init()
	rs := NewRoomServer(testLogger(), 0)

	w := httptest.NewRecorder()
	rs.CreateRoomHandler(w, httptest.NewRequest("GET", "/rooms/create", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
	if rs.Rooms.Count() != 0 {
		t.Fatalf("rejected request still created a room")
	}
}
