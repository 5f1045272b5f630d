package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LoneMenace/cinesense/internal/session"
)

// SessionIDKey is the gin context key holding the current session ID.
const SessionIDKey = "session_id"

// Session attaches a session ID to every request, issuing a new signed
// cookie when the request carries none or an invalid one.
func Session(tokens *session.Tokens, cookieName string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, err := c.Cookie(cookieName); err == nil && raw != "" {
			sid, err := tokens.Parse(raw)
			if err == nil {
				c.Set(SessionIDKey, sid)
				c.Next()
				return
			}
			logger.Debug("Discarding invalid session cookie", zap.Error(err))
		}

		token, sid, err := tokens.Issue()
		if err != nil {
			logger.Error("Failed to issue session token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, token, int(tokens.TTL().Seconds()), "/", "", false, true)
		c.Set(SessionIDKey, sid)
		c.Next()
	}
}

// SessionID returns the session ID set by Session, or "".
func SessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}
