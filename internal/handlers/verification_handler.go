package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"notify-service/internal/models"
	"notify-service/internal/services"
)

// VerificationHandler handles verification HTTP requests
type VerificationHandler struct {
	verificationService *services.VerificationService
}

// NewVerificationHandler creates a new verification handler
func NewVerificationHandler(verificationService *services.VerificationService) *VerificationHandler {
	return &VerificationHandler{
		verificationService: verificationService,
	}
}

// IssueCode issues and delivers a verification code
func (h *VerificationHandler) IssueCode(c *gin.Context) {
	var req models.IssueCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	request, delivered, err := h.verificationService.IssueCode(c.Request.Context(), services.IssueParams{
		Channel:          req.Channel,
		Target:           req.Target,
		Purpose:          req.Purpose,
		CodeLength:       req.CodeLength,
		ExpiresInMinutes: req.ExpiresInMinutes,
		MaxAttempts:      req.MaxAttempts,
		RateLimitPerHour: req.RateLimitPerHour,
		Provider:         req.Provider,
	})
	if err != nil {
		handleServiceError(c, err, "Failed to issue verification code")
		return
	}

	SuccessResponse(c, http.StatusCreated, "Verification code issued", models.IssueResponse{
		ID:        request.ID,
		Channel:   request.Channel,
		Method:    request.Method,
		Target:    request.Target,
		Purpose:   request.Purpose,
		ExpiresAt: request.ExpiresAt,
		Delivered: delivered,
	})
}

// IssueLink issues and delivers a verification link
func (h *VerificationHandler) IssueLink(c *gin.Context) {
	var req models.IssueLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	request, link, delivered, err := h.verificationService.IssueLink(c.Request.Context(), services.IssueParams{
		Channel:          req.Channel,
		Target:           req.Target,
		Purpose:          req.Purpose,
		ExpiresInMinutes: req.ExpiresInMinutes,
		RateLimitPerHour: req.RateLimitPerHour,
		Provider:         req.Provider,
		BaseURL:          req.BaseURL,
	})
	if err != nil {
		handleServiceError(c, err, "Failed to issue verification link")
		return
	}

	SuccessResponse(c, http.StatusCreated, "Verification link issued", models.IssueResponse{
		ID:        request.ID,
		Channel:   request.Channel,
		Method:    request.Method,
		Target:    request.Target,
		Purpose:   request.Purpose,
		ExpiresAt: request.ExpiresAt,
		Delivered: delivered,
		Link:      link,
	})
}

// VerifyCode validates a submitted code
func (h *VerificationHandler) VerifyCode(c *gin.Context) {
	var req models.VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	err := h.verificationService.VerifyCode(c.Request.Context(), req.Channel, req.Target, req.Code, req.Purpose)
	if err != nil {
		handleServiceError(c, err, "Failed to verify code")
		return
	}

	SuccessResponse(c, http.StatusOK, "Verification successful", models.VerifyResponse{Verified: true})
}

// VerifyLink consumes a verification link token
func (h *VerificationHandler) VerifyLink(c *gin.Context) {
	var req models.VerifyLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	err := h.verificationService.VerifyLink(c.Request.Context(), req.Token, req.Purpose)
	if err != nil {
		handleServiceError(c, err, "Failed to verify link")
		return
	}

	SuccessResponse(c, http.StatusOK, "Verification successful", models.VerifyResponse{Verified: true})
}

// Status reports the newest challenge state for a channel/method/target/purpose
func (h *VerificationHandler) Status(c *gin.Context) {
	channel := c.Query("channel")
	method := c.DefaultQuery("method", models.MethodCode)
	target := c.Query("target")
	purpose := c.Query("purpose")

	if channel == "" || target == "" || purpose == "" {
		ErrorResponse(c, http.StatusBadRequest, "channel, target and purpose are required", nil)
		return
	}

	status, err := h.verificationService.Status(c.Request.Context(), channel, method, target, purpose)
	if err != nil {
		handleServiceError(c, err, "Failed to load verification status")
		return
	}

	SuccessResponse(c, http.StatusOK, "Verification status", status)
}
