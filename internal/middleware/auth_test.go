package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"school-chatbot/internal/service"
)

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hash, err := service.HashPassword("s3cret")
	require.NoError(t, err)
	auth := service.NewAuthService("admin", hash, "test-secret", time.Hour, zap.NewNop())
	token, _, err := auth.Login("admin", "s3cret")
	require.NoError(t, err)

	expired := service.NewAuthService("admin", hash, "test-secret", time.Nanosecond, zap.NewNop())
	stale, _, err := expired.Login("admin", "s3cret")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	r := gin.New()
	r.Use(AuthMiddleware(auth, zap.NewNop()))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": c.MustGet("username"), "role": c.MustGet("role")})
	})

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"valid", "Bearer " + token, http.StatusOK, `"username":"admin"`},
		{"missing", "", http.StatusUnauthorized, "Authorization header required"},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized, "Bearer <token>"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "Bearer <token>"},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized, "Invalid token"},
		{"expired", "Bearer " + stale, http.StatusUnauthorized, "Token expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}
