package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/stealthguard/config"
	mw "github.com/kasuganosora/stealthguard/middleware"
	"golang.org/x/crypto/bcrypt"
)

const AdminKeyHeader = "X-Admin-Key"

// AdminAuth returns a middleware that checks the X-Admin-Key header against
// a bcrypt hash. If keyHash is empty all admin endpoints are disabled (503)
// so the server cannot be deployed without protection.
func AdminAuth(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyHash == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key_hash in config"})
			return
		}
		key := c.GetHeader(AdminKeyHeader)
		if key == "" || bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// TokenHandler issues observer tokens for the /sse and /ws streams.
type TokenHandler struct {
	sec config.SecurityConfig
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(sec config.SecurityConfig) *TokenHandler {
	return &TokenHandler{sec: sec}
}

type tokenRequest struct {
	Observer string `json:"observer" binding:"required,min=1,max=64"`
	Level    string `json:"level" binding:"max=64"`
	TTL      string `json:"ttl"`
}

// Issue handles POST /api/admin/token. An empty level grants every level;
// ttl is a Go duration capped at security.jwt_ttl.
func (h *TokenHandler) Issue(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ttl := h.sec.JWTTTL
	if req.TTL != "" {
		d, err := time.ParseDuration(req.TTL)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ttl"})
			return
		}
		ttl = min(d, h.sec.JWTTTL)
	}
	token, err := mw.GenerateToken(req.Observer, req.Level, h.sec.JWTSecret, ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": time.Now().Add(ttl).Unix(),
	})
}
