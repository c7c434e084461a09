package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"notify-service/internal/models"
	"notify-service/internal/services"
)

// KeysHandler handles RSA keyring HTTP requests
type KeysHandler struct {
	keyringService *services.KeyringService
}

// NewKeysHandler creates a new keys handler
func NewKeysHandler(keyringService *services.KeyringService) *KeysHandler {
	return &KeysHandler{
		keyringService: keyringService,
	}
}

// PublicKey returns the active public key for client-side password encryption.
// Serving the key may itself trigger a rotation when the current generation
// has aged out.
func (h *KeysHandler) PublicKey(c *gin.Context) {
	key, err := h.keyringService.PublicKey(c.Request.Context())
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to load public key", err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Public key", key)
}

// Rotate forces a new keypair generation
func (h *KeysHandler) Rotate(c *gin.Context) {
	keypair, err := h.keyringService.Rotate(c.Request.Context())
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to rotate keypair", err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "Keypair rotated", models.PublicKeyResponse{
		KeyID:        keypair.KeyID,
		PublicKeyPEM: keypair.PublicKeyPEM,
	})
}

// Decrypt decrypts a client-encrypted password. The response never reveals
// which stage of decryption failed.
func (h *KeysHandler) Decrypt(c *gin.Context) {
	var req models.DecryptPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	password, err := h.keyringService.DecryptPassword(c.Request.Context(), req.EncryptedPassword, req.KeyID)
	if err != nil {
		handleServiceError(c, err, "Failed to decrypt password")
		return
	}

	SuccessResponse(c, http.StatusOK, "Password decrypted", gin.H{
		"password": password,
	})
}

// Deactivate retires a keypair immediately
func (h *KeysHandler) Deactivate(c *gin.Context) {
	keyID, err := uuid.Parse(c.Param("key_id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid key ID", err)
		return
	}

	if err := h.keyringService.Deactivate(c.Request.Context(), keyID); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to deactivate keypair", err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Keypair deactivated", nil)
}
