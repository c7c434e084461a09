package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Auth validates callers. Either a matching X-API-Key (inter-service calls)
// or a valid HS256 bearer token is accepted; when jwtSecret is empty only the
// API key path is available.
func Auth(validAPIKey, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey := c.GetHeader("X-API-Key"); apiKey != "" {
			if apiKey == validAPIKey {
				c.Next()
				return
			}
			unauthorized(c, "Invalid API key")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token := strings.TrimPrefix(authHeader, "Bearer ")

			// Services may pass the shared key as a bearer token.
			if token == validAPIKey {
				c.Next()
				return
			}

			if jwtSecret != "" {
				claims, err := validateJWT(token, jwtSecret)
				if err == nil {
					if sub, subErr := claims.GetSubject(); subErr == nil && sub != "" {
						c.Set("user_id", sub)
					}
					c.Next()
					return
				}
			}
			unauthorized(c, "Invalid or expired token")
			return
		}

		unauthorized(c, "Missing credentials")
	}
}

func validateJWT(tokenStr, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
	c.Abort()
}
