package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/miyabiren/tabletop-companion/cache"
	"github.com/miyabiren/tabletop-companion/config"
)

const (
	AccountIDKey = "account_id"
	GMKey        = "gm"
)

// Auth validates the Bearer JWT token and checks the session cache.
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// Check session still valid in cache.
		sessionKey := "session:" + tokenStr
		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		exists, err := c.Exists(cacheCtx, sessionKey)
		if err != nil || !exists {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}
		// Sliding expiry: activity pushes the session out a full TTL again.
		// The JWT itself still caps the session's absolute lifetime.
		_ = c.Expire(cacheCtx, sessionKey, sec.JWTTTLH)

		ctx.Set(AccountIDKey, claims.AccountID)
		ctx.Set(GMKey, claims.GM)
		ctx.Next()
	}
}

// GMOnly rejects requests from accounts without the GM flag.
// Must run after Auth.
func GMOnly() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !IsGM(ctx) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "game master only"})
			return
		}
		ctx.Next()
	}
}

// GetAccountID retrieves the authenticated account ID from the Gin context.
func GetAccountID(c *gin.Context) int64 {
	if v, exists := c.Get(AccountIDKey); exists {
		return v.(int64)
	}
	return 0
}

// IsGM reports whether the authenticated account has the GM flag.
func IsGM(c *gin.Context) bool {
	if v, exists := c.Get(GMKey); exists {
		return v.(bool)
	}
	return false
}
