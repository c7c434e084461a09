package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"notify-service/internal/models"
	"notify-service/internal/repository"
	"notify-service/internal/services"
)

// NotificationHandler handles notification HTTP requests
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// Send delivers a single notification
func (h *NotificationHandler) Send(c *gin.Context) {
	var req models.SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	log, err := h.notificationService.Send(c.Request.Context(), services.SendParams{
		Channel:  req.Channel,
		Target:   req.Target,
		Subject:  req.Subject,
		Message:  req.Message,
		Provider: req.Provider,
		Context:  req.Context,
	})
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to send notification", err)
		return
	}

	if log.Status == models.NotificationFailed {
		c.JSON(http.StatusOK, models.APIResponse{
			Success: false,
			Message: "Notification delivery failed",
			Data:    log,
		})
		return
	}

	SuccessResponse(c, http.StatusCreated, "Notification sent", log)
}

// Get retrieves a single notification log entry
func (h *NotificationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid notification ID", err)
		return
	}

	log, err := h.notificationService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ErrorResponse(c, http.StatusNotFound, "Notification not found", nil)
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, "Failed to load notification", err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Notification", log)
}

// List retrieves notification logs with filters and pagination
func (h *NotificationHandler) List(c *gin.Context) {
	filters := repository.NotificationFilters{
		Channel: c.Query("channel"),
		Status:  c.Query("status"),
		Target:  c.Query("target"),
	}

	if raw := c.Query("broadcast_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "Invalid broadcast_id", err)
			return
		}
		filters.BroadcastID = &id
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "Invalid from date, expected RFC3339", err)
			return
		}
		filters.FromDate = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "Invalid to date, expected RFC3339", err)
			return
		}
		filters.ToDate = &t
	}
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filters.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	logs, total, err := h.notificationService.List(c.Request.Context(), filters)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to list notifications", err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Notifications", gin.H{
		"notifications": logs,
		"total":         total,
		"limit":         filters.Limit,
		"offset":        filters.Offset,
	})
}

// Retry re-runs delivery for a failed notification
func (h *NotificationHandler) Retry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid notification ID", err)
		return
	}

	log, err := h.notificationService.Retry(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ErrorResponse(c, http.StatusNotFound, "Notification not found", nil)
			return
		}
		ErrorResponse(c, http.StatusBadRequest, "Failed to retry notification", err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Notification retried", log)
}
