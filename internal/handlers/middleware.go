package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"climate_bridge/internal/models"
)

const (
	ctxKeyUserID      = "userId"
	ctxKeyCredentials = "vendorCredentials"
)

// sessionMiddleware authenticates the caller and resolves the vendor
// credentials its requests act with. The token comes from the Authorization
// header, or from a "token" query parameter for transports that cannot set
// headers (EventSource, browser WebSocket).
func (h *Handler) sessionMiddleware(c *gin.Context) {
	token, errMsg := extractToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMsg})
		return
	}

	userID, err := h.services.ParseToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	creds, err := h.services.Credentials(userID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "no vendor credentials for this account",
		})
		return
	}

	c.Set(ctxKeyUserID, userID)
	c.Set(ctxKeyCredentials, creds)
	c.Next()
}

func extractToken(c *gin.Context) (token, errMsg string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if qt := c.Query("token"); qt != "" {
			return qt, ""
		}
		return "", "missing Authorization header"
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "invalid Authorization header format"
	}
	return parts[1], ""
}

// credentials pulls the resolved vendor credentials from the Gin context.
func credentials(c *gin.Context) (models.VendorCredentials, bool) {
	v, ok := c.Get(ctxKeyCredentials)
	if !ok {
		return models.VendorCredentials{}, false
	}
	creds, ok := v.(models.VendorCredentials)
	return creds, ok
}
