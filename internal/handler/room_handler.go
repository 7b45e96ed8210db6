package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/response"
	"github.com/stemsi/eduadmin-backend/internal/service"
	"github.com/stemsi/eduadmin-backend/internal/validator"
)

// RoomHandler handles classroom CRUD.
type RoomHandler struct {
	roomService *service.RoomService
	log         zerolog.Logger
}

// NewRoomHandler creates a new RoomHandler.
func NewRoomHandler(roomService *service.RoomService, log zerolog.Logger) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
		log:         log.With().Str("component", "room_handler").Logger(),
	}
}

// List godoc
// GET /api/v1/teacher/rooms
func (h *RoomHandler) List(c *gin.Context) {
	rooms, err := h.roomService.List(c.Request.Context())
	if err != nil {
		failService(c, h.log, err)
		return
	}
	if rooms == nil {
		rooms = []model.Room{}
	}
	response.Success(c, http.StatusOK, gin.H{"rooms": rooms})
}

// GetByID godoc
// GET /api/v1/teacher/rooms/:id
func (h *RoomHandler) GetByID(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}

	room, err := h.roomService.GetByID(c.Request.Context(), id)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"room": room})
}

// Create godoc
// POST /api/v1/teacher/rooms
func (h *RoomHandler) Create(c *gin.Context) {
	var req model.RoomRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	room := &model.Room{Number: req.Number, Building: req.Building, Capacity: req.Capacity}
	if err := h.roomService.Create(c.Request.Context(), room); err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"room": room})
}

// Update godoc
// PUT /api/v1/teacher/rooms/:id
// Capacity may be lowered below the current headcount; only new enrollments are refused.
func (h *RoomHandler) Update(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}

	var req model.RoomRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	room := &model.Room{ID: id, Number: req.Number, Building: req.Building, Capacity: req.Capacity}
	if err := h.roomService.Update(c.Request.Context(), room); err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"room": room})
}

// Delete godoc
// DELETE /api/v1/teacher/rooms/:id
func (h *RoomHandler) Delete(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}

	if err := h.roomService.Delete(c.Request.Context(), id); err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "room deleted successfully"})
}
