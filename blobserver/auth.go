package blobserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/eight/common"
)

const clientIDKey = "clientID"

// AuthMiddleware verifies Basic auth credentials against hashed client secrets
type AuthMiddleware struct {
	logger      common.Logger
	credentials map[string]string
	failures    *FailureTracker
	now         func() time.Time
}

// NewAuthMiddleware creates a new authentication middleware. credentials maps
// client ids to hashes produced by HashSecret; failures may be nil.
func NewAuthMiddleware(logger common.Logger, credentials map[string]string, failures *FailureTracker) *AuthMiddleware {
	if failures == nil {
		failures = NewFailureTracker(LockoutSettings{})
	}
	return &AuthMiddleware{
		logger:      common.LoggerOrNop(logger),
		credentials: credentials,
		failures:    failures,
		now:         time.Now,
	}
}

// RequireAuth middleware that requires client authentication
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			m.logger.Warn("Missing Authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing Authorization header"})
			return
		}
		if !strings.HasPrefix(authHeader, "Basic ") {
			m.logger.Warn("Invalid Authorization header format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid Authorization header format"})
			return
		}

		clientID, clientSecret, ok := c.Request.BasicAuth()
		if !ok {
			m.logger.Warn("Failed to parse Basic Auth credentials")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials format"})
			return
		}

		hash, known := m.credentials[clientID]
		if !known {
			m.logger.Warn("Unknown client", "clientID", clientID)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		if m.failures.IsLocked(clientID, m.now()) {
			m.logger.Warn("Client locked out after repeated failures", "clientID", clientID, "clientIP", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many failed attempts"})
			return
		}

		valid, err := VerifySecret(clientSecret, hash)
		if err != nil {
			m.logger.Error("Error verifying client", "clientID", clientID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authentication error"})
			return
		}
		if !valid {
			count := m.failures.RecordFailure(clientID, m.now())
			m.logger.Warn("Invalid client credentials", "clientID", clientID, "clientIP", c.ClientIP(), "failures", count)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		m.failures.Reset(clientID)
		c.Set(clientIDKey, clientID)
		c.Next()
	}
}
