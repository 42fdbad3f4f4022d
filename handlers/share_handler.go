package handlers

import (
	"fmt"
	"net/http"
	"time"

	"teamvault-backend/metrics"
	"teamvault-backend/service"

	"github.com/gin-gonic/gin"
)

// ShareHandler handles HTTP requests for share tokens. Share downloads
// are the only surface that accepts anonymous callers.
type ShareHandler struct {
	shareService *service.ShareService
}

// NewShareHandler creates a new share handler
func NewShareHandler(shareService *service.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

type createShareBody struct {
	ExpiresAt      *time.Time `json:"expires_at"`
	MaxDownloads   *int       `json:"max_downloads"`
	Password       string     `json:"password"`
	AllowedDomains []string   `json:"allowed_domains"`
	RequireAuth    bool       `json:"require_auth"`
}

// Create handles POST /api/files/:id/shares
func (h *ShareHandler) Create(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var body createShareBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	share, err := h.shareService.CreateShare(c.Request.Context(), id, actor, service.ShareConstraints{
		ExpiresAt:      body.ExpiresAt,
		MaxDownloads:   body.MaxDownloads,
		Password:       body.Password,
		AllowedDomains: body.AllowedDomains,
		RequireAuth:    body.RequireAuth,
	}, clientInfo(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, share)
}

// List handles GET /api/files/:id/shares
func (h *ShareHandler) List(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	shares, err := h.shareService.ListShares(c.Request.Context(), id, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"shares": shares, "count": len(shares)})
}

// Revoke handles DELETE /api/shares/:id
func (h *ShareHandler) Revoke(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}
	shareID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.shareService.RevokeShare(c.Request.Context(), shareID, actor, clientInfo(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"revoked": shareID})
}

// Download handles POST /api/shares/:id/download, where :id is the
// opaque share token. Anonymous access is allowed unless the share
// itself requires authentication. The password travels in the
// X-Share-Password header so it stays out of URLs and logs.
func (h *ShareHandler) Download(c *gin.Context) {
	token := c.Param("id")
	if token == "" {
		respondError(c, http.StatusBadRequest, "MISSING_TOKEN", "Share token is required")
		return
	}

	reqCtx := service.AccessContext{
		Origin: c.GetHeader("Origin"),
		Client: clientInfo(c),
	}
	if principal, ok := currentPrincipal(c); ok {
		reqCtx.Principal = &principal
	}

	file, data, err := h.shareService.DownloadViaShare(c.Request.Context(), token,
		c.GetHeader("X-Share-Password"), reqCtx)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("share", "error").Inc()
		respondServiceError(c, err)
		return
	}

	metrics.DownloadsTotal.WithLabelValues("share", "success").Inc()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.OriginalName))
	c.Data(http.StatusOK, file.MimeType, data)
}
