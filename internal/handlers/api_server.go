// internal/handlers/api_server.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/heartboard/server/internal/game"
	"github.com/heartboard/server/internal/room"
)

// HealthHandler reports liveness and the number of live rooms.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rooms":  s.Engine.Rooms.Len(),
	})
}

// RoomSnapshotHandler returns the full stored state of a room.
func (s *Server) RoomSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	data, err := s.Engine.Snapshot(r.PathValue("code"))
	switch {
	case errors.Is(err, game.ErrInvalidRoomCode):
		http.Error(w, "invalid room code", http.StatusBadRequest)
		return
	case errors.Is(err, room.ErrRoomNotFound):
		http.Error(w, "room not found", http.StatusNotFound)
		return
	case err != nil:
		s.logger.WithError(err).Error("snapshot failed")
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
