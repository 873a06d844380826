package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/dharmikvarsani/task-management/internal/auth"
	"github.com/dharmikvarsani/task-management/internal/cache"

	"github.com/gin-gonic/gin"
)

// IdentityKey is the gin context key under which the session claims are stored.
const IdentityKey = "identity"

// claimsCache memoizes successful token validations. Claims are immutable for
// a token's lifetime, so cached entries can never go stale before expiry.
var claimsCache = cache.New[string, *auth.Claims]()

// cacheTTL caps how long a validated token is remembered.
const cacheTTL = 5 * time.Minute

// SessionAuth validates the session token and stores the caller's identity in
// the request context. The token is read from the "token" cookie, the
// Authorization header, or (for WebSocket clients that cannot set either) the
// token query param.
func SessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is required",
			})
			c.Abort()
			return
		}

		claims, ok := claimsCache.Get(tokenString)
		if !ok {
			var err error
			claims, err = auth.ValidateToken(tokenString)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{
					"error": "Invalid or expired token",
				})
				c.Abort()
				return
			}
			ttl := cacheTTL
			if claims.ExpiresAt != nil {
				if remaining := time.Until(claims.ExpiresAt.Time); remaining < ttl {
					ttl = remaining
				}
			}
			claimsCache.Set(tokenString, claims, ttl)
		}

		c.Set(IdentityKey, claims)
		c.Next()
	}
}

// Identity returns the validated session claims, or nil when the request is
// unauthenticated (public endpoints).
func Identity(c *gin.Context) *auth.Claims {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// ExtractToken pulls the raw session token off a request without validating
// it. Used by endpoints like /api/auth/me that answer 200 either way.
func ExtractToken(c *gin.Context) string {
	return extractToken(c)
}

func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie("token"); err == nil && cookie != "" {
		return cookie
	}
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return c.Query("token")
}
