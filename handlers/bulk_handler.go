package handlers

import (
	"net/http"

	"teamvault-backend/models"
	"teamvault-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BulkHandler handles HTTP requests for batched operations
type BulkHandler struct {
	bulkService *service.BulkService
}

// NewBulkHandler creates a new bulk handler
func NewBulkHandler(bulkService *service.BulkService) *BulkHandler {
	return &BulkHandler{bulkService: bulkService}
}

type bulkDeleteBody struct {
	IDs       []uuid.UUID `json:"ids"`
	Permanent bool        `json:"permanent"`
}

// Delete handles POST /api/files/bulk/delete
func (h *BulkHandler) Delete(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var body bulkDeleteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	result, err := h.bulkService.BulkDelete(c.Request.Context(), actor, body.IDs, body.Permanent, clientInfo(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, result)
}

type bulkMoveBody struct {
	IDs      []uuid.UUID `json:"ids"`
	Category string      `json:"category"`
}

// Move handles POST /api/files/bulk/move
func (h *BulkHandler) Move(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var body bulkMoveBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	result, err := h.bulkService.BulkMove(c.Request.Context(), actor, body.IDs,
		models.FileCategory(body.Category), clientInfo(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, result)
}

type bulkCopyBody struct {
	IDs []uuid.UUID `json:"ids"`
}

// Copy handles POST /api/files/bulk/copy
func (h *BulkHandler) Copy(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var body bulkCopyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	result, err := h.bulkService.BulkCopy(c.Request.Context(), actor, body.IDs, clientInfo(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, result)
}

type bulkTagBody struct {
	IDs  []uuid.UUID `json:"ids"`
	Mode string      `json:"mode"`
	Tags []string    `json:"tags"`
}

// Tag handles POST /api/files/bulk/tags
func (h *BulkHandler) Tag(c *gin.Context) {
	actor, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var body bulkTagBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	result, err := h.bulkService.BulkTag(c.Request.Context(), actor, body.IDs,
		models.TagMode(body.Mode), body.Tags, clientInfo(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, result)
}
