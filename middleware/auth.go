package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/stealthguard/config"
)

const ClaimsKey = "observer_claims"

// ObserverAuth validates an observer JWT taken from the Authorization
// header or, for browser EventSource and WebSocket clients, the token
// query parameter.
func ObserverAuth(sec config.SecurityConfig) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenStr := ctx.Query("token")
		if header := ctx.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			tokenStr = strings.TrimPrefix(header, "Bearer ")
		}
		if tokenStr == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if level := ctx.Query("level"); level != "" && !claims.CanWatch(level) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "level not permitted"})
			return
		}

		ctx.Set(ClaimsKey, claims)
		ctx.Next()
	}
}

// GetClaims retrieves the observer claims from the Gin context.
func GetClaims(c *gin.Context) *Claims {
	if v, exists := c.Get(ClaimsKey); exists {
		return v.(*Claims)
	}
	return nil
}
