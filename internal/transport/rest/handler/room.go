package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"gridloop/internal/mutation"
	"gridloop/internal/rooms"
	"gridloop/internal/service"
	"gridloop/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// maxMutationsPerPush bounds a single push request
const maxMutationsPerPush = 100

// RoomHandler handles push/pull endpoints
type RoomHandler struct {
	roomSvc *service.RoomService
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(roomSvc *service.RoomService) *RoomHandler {
	return &RoomHandler{roomSvc: roomSvc}
}

// PushRequest is the request body for pushing mutations
type PushRequest struct {
	Mutations []mutation.Mutation `json:"mutations"`
}

// Push handles POST /v1/rooms/{roomID}/push
func (h *RoomHandler) Push(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]
	clientID := middleware.GetClientID(r.Context())

	var req PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Mutations) > maxMutationsPerPush {
		writeError(w, http.StatusRequestEntityTooLarge, "too many mutations")
		return
	}

	res, err := h.roomSvc.Push(r.Context(), roomID, clientID, req.Mutations)
	if err != nil {
		if errors.Is(err, mutation.ErrUnknownRoom) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Pull handles GET /v1/rooms/{roomID}/pull
func (h *RoomHandler) Pull(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]
	clientID := middleware.GetClientID(r.Context())

	resp, err := h.roomSvc.Pull(r.Context(), roomID, clientID)
	if err != nil {
		if errors.Is(err, mutation.ErrUnknownRoom) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Assignment handles GET /v1/orchestrator/assignment
func (h *RoomHandler) Assignment(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.GetClientID(r.Context())
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = rooms.PublicScope
	}

	a, err := h.roomSvc.GetAssignment(r.Context(), scope, clientID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "no room assignment")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// CreatePlayRoom handles POST /v1/rooms/play and returns a private play room ID
func (h *RoomHandler) CreatePlayRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := rooms.RandomPlayRoomID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"roomID": roomID})
}
