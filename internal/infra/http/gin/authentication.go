package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"sawa/internal/app/principal"
)

const principalContextKey = "sawa.principal"

// KeyResolver maps a bearer token to its owner.
type KeyResolver interface {
	Resolve(token string) (principal.Principal, error)
}

// AuthMiddleware attaches the caller behind a bearer API key to the request.
// Requests without a key stay anonymous; a key that does not verify is rejected.
type AuthMiddleware struct {
	Keys   KeyResolver
	Logger *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Keys == nil {
		c.Next()
		return
	}
	p, err := m.Keys.Resolve(token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Debug("api key rejected", "error", err, "path", c.FullPath())
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}
	setPrincipal(c, p)
	c.Next()
}

func setPrincipal(c *gin.Context, p principal.Principal) {
	c.Set(principalContextKey, p)
	c.Request = c.Request.WithContext(principal.WithPrincipal(c.Request.Context(), p))
}

func currentPrincipal(c *gin.Context) (principal.Principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal.Principal{}, false
	}
	p, ok := val.(principal.Principal)
	return p, ok
}

func extractBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
