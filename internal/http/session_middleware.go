package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"login-system/internal/service"
)

const (
	sessionTokenKey = "session_token"
	identityKey     = "identity"
)

// sessionCookieMiddleware extrae el token de la cookie firmada; no consulta el store.
func sessionCookieMiddleware(logger *zap.Logger, cookie *SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(cookie.Name())
		if err == nil && raw != "" {
			token, err := cookie.Decode(raw)
			if err != nil {
				logger.Debug("ignoring invalid session cookie", zap.Error(err))
			} else {
				c.Set(sessionTokenKey, token)
			}
		}
		c.Next()
	}
}

// RequireSession deja pasar solo requests con una sesion valida.
func RequireSession(logger *zap.Logger, auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := auth.Authorize(c.Request.Context(), SessionToken(c))
		if err != nil {
			logger.Error("authorize failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": msgInternalError})
			return
		}
		if !identity.Authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msgUnauthorized})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// SessionToken obtiene el token de sesion del request, o "" si no hay.
func SessionToken(c *gin.Context) string {
	return c.GetString(sessionTokenKey)
}

// GetIdentity obtiene la identidad guardada por RequireSession.
func GetIdentity(c *gin.Context) (service.Identity, bool) {
	val, ok := c.Get(identityKey)
	if !ok {
		return service.Anonymous, false
	}
	identity, ok := val.(service.Identity)
	return identity, ok
}
