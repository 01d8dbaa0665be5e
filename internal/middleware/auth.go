package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"school-chatbot/internal/service"
)

// Context keys set for authenticated admin requests.
const (
	UsernameKey = "username"
	RoleKey     = "role"
)

// AuthMiddleware admits requests carrying a valid admin token in
// "Authorization: Bearer <token>".
func AuthMiddleware(auth service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, msg := bearerToken(c.GetHeader("Authorization"))
		if msg != "" {
			unauthorized(c, msg)
			return
		}

		claims, err := auth.ParseToken(token)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			unauthorized(c, "Token expired")
			return
		case err != nil:
			logger.Warn("Rejected admin token", zap.String("path", c.FullPath()), zap.Error(err))
			unauthorized(c, "Invalid token")
			return
		}

		c.Set(UsernameKey, claims.Username)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// bearerToken returns the token, or the message to reject the header with.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "Authorization header required"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" || strings.Contains(token, " ") {
		return "", "Authorization header format must be Bearer <token>"
	}
	return token, ""
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
