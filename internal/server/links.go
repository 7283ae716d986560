package server

import (
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// signablePaths are the GET routes a browser fetches without headers.
var signablePaths = regexp.MustCompile(`^/api/(download|thumbnails/\d+)$`)

// LinkHandlers signs transfer links.
type LinkHandlers struct {
	auth *Authenticator
	ttl  time.Duration
}

// NewLinkHandlers creates link handlers.
func NewLinkHandlers(auth *Authenticator, ttl time.Duration) *LinkHandlers {
	return &LinkHandlers{auth: auth, ttl: ttl}
}

type linkRequest struct {
	Path string `json:"path" binding:"required"`
}

// SignLink handles POST /api/links
func (h *LinkHandlers) SignLink(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "path is required")
		return
	}
	if !signablePaths.MatchString(req.Path) {
		badRequest(c, "only download and thumbnail paths can be signed")
		return
	}

	token, expires, err := h.auth.SignLink(req.Path, h.ttl)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":       req.Path + "?token=" + url.QueryEscape(token),
		"expiresAt": expires.UTC().Format(time.RFC3339),
	})
}
