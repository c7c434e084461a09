package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"notify-service/internal/models"
	"notify-service/internal/services"
)

// unsubscribeLinkTTL bounds how long a signed link stays valid
const unsubscribeLinkTTL = 30 * 24 * time.Hour

// UnsubscribeHandler handles opt-out requests arriving through signed links.
// The link carries channel|target|scope|timestamp signed with HMAC-SHA256, so
// opt-outs need no session and cannot be forged for someone else's address.
type UnsubscribeHandler struct {
	broadcastService *services.BroadcastService
	signingKey       string
}

// NewUnsubscribeHandler creates a new unsubscribe handler
func NewUnsubscribeHandler(broadcastService *services.BroadcastService, signingKey string) *UnsubscribeHandler {
	return &UnsubscribeHandler{
		broadcastService: broadcastService,
		signingKey:       signingKey,
	}
}

// GenerateUnsubscribeURL builds a signed opt-out link for a target
func (h *UnsubscribeHandler) GenerateUnsubscribeURL(baseURL, channel, target, scope string) string {
	if scope == "" {
		scope = models.ScopeGeneral
	}
	data := fmt.Sprintf("%s|%s|%s|%d", channel, target, scope, time.Now().Unix())
	signature := h.sign(data)
	encoded := base64.URLEncoding.EncodeToString([]byte(data))
	return fmt.Sprintf("%s/unsubscribe?d=%s&s=%s", baseURL, url.QueryEscape(encoded), url.QueryEscape(signature))
}

func (h *UnsubscribeHandler) sign(data string) string {
	mac := hmac.New(sha256.New, []byte(h.signingKey))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func (h *UnsubscribeHandler) verify(data, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(h.sign(data)))
}

// parseLink decodes and validates the d/s query pair. It returns channel,
// target and scope, or an error message suitable for the client.
func (h *UnsubscribeHandler) parseLink(encoded, signature string) (channel, target, scope string, errMsg string) {
	if encoded == "" || signature == "" {
		return "", "", "", "Invalid unsubscribe link"
	}

	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", "", "Invalid unsubscribe link"
	}
	data := string(raw)

	if !h.verify(data, signature) {
		return "", "", "", "Invalid or tampered unsubscribe link"
	}

	parts := strings.Split(data, "|")
	if len(parts) != 4 {
		return "", "", "", "Invalid unsubscribe link format"
	}

	issued, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil || time.Since(time.Unix(issued, 0)) > unsubscribeLinkTTL {
		return "", "", "", "This unsubscribe link has expired"
	}

	return parts[0], parts[1], parts[2], ""
}

// HandleUnsubscribe serves the confirmation page on GET and records the
// opt-out on POST.
func (h *UnsubscribeHandler) HandleUnsubscribe(c *gin.Context) {
	encoded := c.Query("d")
	signature := c.Query("s")
	if c.Request.Method == http.MethodPost && encoded == "" {
		encoded = c.PostForm("d")
		signature = c.PostForm("s")
	}

	channel, target, scope, errMsg := h.parseLink(encoded, signature)
	if errMsg != "" {
		h.renderPage(c, "", errMsg, true, "", "")
		return
	}

	if c.Request.Method == http.MethodGet {
		h.renderPage(c, target, "", false, encoded, signature)
		return
	}

	if err := h.broadcastService.Unsubscribe(c.Request.Context(), channel, target, scope); err != nil {
		h.renderPage(c, target, "Failed to process the request, please try again", true, "", "")
		return
	}

	h.renderSuccess(c, target)
}

// HandleOneClickUnsubscribe implements RFC 8058 one-click opt-out, POST only
func (h *UnsubscribeHandler) HandleOneClickUnsubscribe(c *gin.Context) {
	encoded := c.PostForm("d")
	signature := c.PostForm("s")
	if encoded == "" {
		encoded = c.Query("d")
		signature = c.Query("s")
	}

	channel, target, scope, errMsg := h.parseLink(encoded, signature)
	if errMsg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMsg})
		return
	}

	if err := h.broadcastService.Unsubscribe(c.Request.Context(), channel, target, scope); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unsubscribe"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Successfully unsubscribed"})
}

func (h *UnsubscribeHandler) renderPage(c *gin.Context, target, errMsg string, isError bool, encoded, signature string) {
	var body string
	if isError {
		body = fmt.Sprintf(`<h1>Oops!</h1><p class="error">%s</p>`, errMsg)
	} else {
		body = fmt.Sprintf(`<h1>Unsubscribe</h1>
<p>You are about to stop receiving messages at:</p>
<p class="target">%s</p>
<form method="POST" action="">
  <input type="hidden" name="d" value="%s">
  <input type="hidden" name="s" value="%s">
  <button type="submit">Yes, unsubscribe</button>
</form>`, target, encoded, signature)
	}
	h.renderHTML(c, body)
}

func (h *UnsubscribeHandler) renderSuccess(c *gin.Context, target string) {
	h.renderHTML(c, fmt.Sprintf(`<h1>You've been unsubscribed</h1>
<p>No further messages will be sent to:</p>
<p class="target">%s</p>`, target))
}

func (h *UnsubscribeHandler) renderHTML(c *gin.Context, body string) {
	html := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Unsubscribe</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
           display: flex; align-items: center; justify-content: center; min-height: 100vh;
           background: #f1f5f9; margin: 0; padding: 20px; }
    .card { background: white; border-radius: 12px; padding: 40px; max-width: 440px;
            width: 100%%; box-shadow: 0 10px 30px rgba(0,0,0,0.1); text-align: center; }
    h1 { color: #1e293b; font-size: 22px; }
    p { color: #64748b; line-height: 1.6; }
    .target { font-weight: 600; color: #1e293b; background: #f1f5f9; padding: 8px 16px;
              border-radius: 8px; display: inline-block; }
    .error { color: #dc2626; }
    button { background: #ef4444; color: white; border: none; border-radius: 8px;
             padding: 12px 28px; font-size: 16px; font-weight: 600; cursor: pointer; }
  </style>
</head>
<body><div class="card">%s</div></body>
</html>`, body)

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, html)
}
