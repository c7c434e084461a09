package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"notify-service/internal/models"
	"notify-service/internal/services"
)

// BroadcastHandler handles broadcast campaign HTTP requests
type BroadcastHandler struct {
	broadcastService *services.BroadcastService
}

// NewBroadcastHandler creates a new broadcast handler
func NewBroadcastHandler(broadcastService *services.BroadcastService) *BroadcastHandler {
	return &BroadcastHandler{
		broadcastService: broadcastService,
	}
}

// Create creates a draft campaign
func (h *BroadcastHandler) Create(c *gin.Context) {
	var req models.CreateBroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	broadcast, err := h.broadcastService.Create(c.Request.Context(), req)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to create broadcast", err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "Broadcast created", broadcast)
}

// Get retrieves a campaign with its delivery counters
func (h *BroadcastHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid broadcast ID", err)
		return
	}

	broadcast, err := h.broadcastService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ErrorResponse(c, http.StatusNotFound, "Broadcast not found", nil)
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, "Failed to load broadcast", err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Broadcast", broadcast)
}

// List retrieves campaigns, newest first
func (h *BroadcastHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	broadcasts, total, err := h.broadcastService.List(c.Request.Context(), limit, offset)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to list broadcasts", err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Broadcasts", gin.H{
		"broadcasts": broadcasts,
		"total":      total,
		"limit":      limit,
		"offset":     offset,
	})
}

// Send runs a fan-out pass for a campaign
func (h *BroadcastHandler) Send(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid broadcast ID", err)
		return
	}

	broadcast, err := h.broadcastService.Send(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ErrorResponse(c, http.StatusNotFound, "Broadcast not found", nil)
			return
		}
		ErrorResponse(c, http.StatusUnprocessableEntity, "Broadcast send failed", err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Broadcast send finished", broadcast)
}
