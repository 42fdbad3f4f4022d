package handlers

import (
	"net/http"
	"strconv"

	"teamvault-backend/models"
	"teamvault-backend/service"

	"github.com/gin-gonic/gin"
)

// VersionHandler handles HTTP requests for version history
type VersionHandler struct {
	versionService *service.VersionService
}

// NewVersionHandler creates a new version handler
func NewVersionHandler(versionService *service.VersionService) *VersionHandler {
	return &VersionHandler{versionService: versionService}
}

type createVersionBody struct {
	ChangeSummary string `json:"change_summary"`
	ChangeType    string `json:"change_type"`
	Bump          string `json:"bump"`
}

// Create handles POST /api/files/:id/versions
func (h *VersionHandler) Create(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var body createVersionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	entry, err := h.versionService.CreateVersion(c.Request.Context(), id, actor, service.CreateVersionRequest{
		ChangeSummary: body.ChangeSummary,
		ChangeType:    models.ChangeType(body.ChangeType),
		Bump:          models.VersionBump(body.Bump),
		Client:        clientInfo(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, entry)
}

// List handles GET /api/files/:id/versions
func (h *VersionHandler) List(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	versions, err := h.versionService.ListVersions(c.Request.Context(), id, actor,
		intQuery(c, "limit"), intQuery(c, "offset"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"versions": versions, "count": len(versions)})
}

type restoreBody struct {
	Version      float64 `json:"version"`
	CreateBackup bool    `json:"create_backup"`
}

// Restore handles POST /api/files/:id/versions/restore
func (h *VersionHandler) Restore(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var body restoreBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if body.Version <= 0 {
		respondError(c, http.StatusBadRequest, "INVALID_VERSION", "version must be positive")
		return
	}

	file, err := h.versionService.RestoreVersion(c.Request.Context(), id, actor,
		body.Version, body.CreateBackup, clientInfo(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, file)
}

// Diff handles GET /api/files/:id/versions/diff?from=1.0&to=1.1
func (h *VersionHandler) Diff(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	from, err := strconv.ParseFloat(c.Query("from"), 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_VERSION", "from must be a version number")
		return
	}
	to, err := strconv.ParseFloat(c.Query("to"), 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_VERSION", "to must be a version number")
		return
	}

	diff, err := h.versionService.DiffVersions(c.Request.Context(), id, actor, from, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"from": from, "to": to, "diff": diff})
}
