package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"teamvault-backend/apperr"
	"teamvault-backend/metrics"
	"teamvault-backend/models"
	"teamvault-backend/service"

	"github.com/gin-gonic/gin"
)

// FileHandler handles HTTP requests for file records
type FileHandler struct {
	fileService *service.FileService
	audit       *service.AccessLogger
}

// NewFileHandler creates a new file handler
func NewFileHandler(fileService *service.FileService, audit *service.AccessLogger) *FileHandler {
	return &FileHandler{fileService: fileService, audit: audit}
}

// Upload handles POST /api/files/upload
func (h *FileHandler) Upload(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "File is required")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_OPEN_ERROR", err.Error())
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_READ_ERROR", err.Error())
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	req := service.UploadRequest{
		Data:         data,
		Name:         fileHeader.Filename,
		DeclaredMime: mimeType,
		Category:     models.FileCategory(c.DefaultPostForm("category", string(models.CategoryDocument))),
		OwnerID:      actor.ID,
		Visibility:   models.Visibility(c.PostForm("visibility")),
		Description:  c.PostForm("description"),
		Tags:         splitTags(c.PostForm("tags")),
		Client:       clientInfo(c),
	}

	if expiresStr := c.PostForm("expires_at"); expiresStr != "" {
		expires, err := time.Parse(time.RFC3339, expiresStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_EXPIRY", "expires_at must be RFC 3339")
			return
		}
		req.ExpiresAt = &expires
	}

	file, err := h.fileService.Upload(c.Request.Context(), req)
	if err != nil {
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			metrics.UploadsTotal.WithLabelValues("rejected").Inc()
			metrics.ValidationRejections.WithLabelValues(ve.Code).Inc()
		} else {
			metrics.UploadsTotal.WithLabelValues("error").Inc()
		}
		respondServiceError(c, err)
		return
	}

	metrics.UploadsTotal.WithLabelValues("success").Inc()
	respondData(c, http.StatusCreated, file)
}

// Get handles GET /api/files/:id
func (h *FileHandler) Get(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	file, err := h.fileService.GetFile(c.Request.Context(), id, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, file)
}

// Download handles GET /api/files/:id/download
func (h *FileHandler) Download(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	file, data, err := h.fileService.Download(c.Request.Context(), id, actor, clientInfo(c))
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("direct", "error").Inc()
		respondServiceError(c, err)
		return
	}

	metrics.DownloadsTotal.WithLabelValues("direct", "success").Inc()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.OriginalName))
	c.Data(http.StatusOK, file.MimeType, data)
}

// updateBody is the partial-update payload; absent fields are untouched
type updateBody struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	Visibility  *models.Visibility `json:"visibility"`
	Tags        []string           `json:"tags"`
	ExpiresAt   *time.Time         `json:"expires_at"`
}

// Update handles PATCH /api/files/:id
func (h *FileHandler) Update(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var body updateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	file, err := h.fileService.Update(c.Request.Context(), id, actor, service.UpdateRequest{
		Name:        body.Name,
		Description: body.Description,
		Visibility:  body.Visibility,
		Tags:        body.Tags,
		ExpiresAt:   body.ExpiresAt,
		Client:      clientInfo(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, file)
}

// List handles GET /api/files
func (h *FileHandler) List(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}

	req := service.ListRequest{
		Tag:            c.Query("tag"),
		Search:         c.Query("search"),
		OwnerOnly:      c.Query("mine") == "true",
		IncludeDeleted: c.Query("include_deleted") == "true",
		Limit:          intQuery(c, "limit"),
		Offset:         intQuery(c, "offset"),
	}
	if cat := c.Query("category"); cat != "" {
		category := models.FileCategory(cat)
		req.Category = &category
	}
	if vis := c.Query("visibility"); vis != "" {
		visibility := models.Visibility(vis)
		req.Visibility = &visibility
	}

	files, err := h.fileService.List(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"files": files, "count": len(files)})
}

// Delete handles DELETE /api/files/:id (soft delete)
func (h *FileHandler) Delete(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.fileService.SoftDelete(c.Request.Context(), id, actor, clientInfo(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"deleted": id})
}

// PermanentDelete handles DELETE /api/files/:id/permanent
func (h *FileHandler) PermanentDelete(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.fileService.Purge(c.Request.Context(), id, actor, clientInfo(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"purged": id})
}

// Logs handles GET /api/files/:id/logs. The read goes through GetFile
// first so the audit trail is only visible to readers of the file.
func (h *FileHandler) Logs(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := h.fileService.GetFile(c.Request.Context(), id, actor); err != nil {
		respondServiceError(c, err)
		return
	}

	entries, err := h.audit.History(c.Request.Context(), id, intQuery(c, "limit"), intQuery(c, "offset"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"logs": entries, "count": len(entries)})
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

func intQuery(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}
