package handlers

import (
	"errors"
	"net/http"

	"teamvault-backend/apperr"
	"teamvault-backend/models"
	"teamvault-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const principalKey = "principal"

// PrincipalMiddleware materializes the authenticated principal resolved
// by the upstream auth layer. Identity arrives pre-verified in headers;
// this core never authenticates on its own.
func PrincipalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.GetHeader("X-User-ID")
		if idStr == "" {
			c.Next()
			return
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			c.Next()
			return
		}
		c.Set(principalKey, models.Principal{ID: id, Role: c.GetHeader("X-User-Role")})
		c.Next()
	}
}

// currentPrincipal returns the request's principal, if any
func currentPrincipal(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

// requirePrincipal aborts with 401 when the request is unauthenticated
func requirePrincipal(c *gin.Context) (models.Principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return models.Principal{}, false
	}
	return p, true
}

func clientInfo(c *gin.Context) service.ClientInfo {
	return service.ClientInfo{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondServiceError maps the error taxonomy to HTTP statuses and
// stable error codes.
func respondServiceError(c *gin.Context, err error) {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		respondError(c, http.StatusBadRequest, ve.Code, ve.Message)
		return
	}

	var ie *apperr.IntegrityError
	if errors.As(err, &ie) {
		respondError(c, http.StatusInternalServerError, "INTEGRITY_FAILURE",
			"Stored content failed its integrity check")
		return
	}

	switch {
	case errors.Is(err, apperr.ErrNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, apperr.ErrForbidden):
		respondError(c, http.StatusForbidden, "FORBIDDEN", "You do not have permission to do that")
	case errors.Is(err, apperr.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	case errors.Is(err, apperr.ErrConflict):
		respondError(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, apperr.ErrExpired):
		respondError(c, http.StatusGone, "SHARE_EXPIRED", "Share link has expired")
	case errors.Is(err, apperr.ErrLimitReached):
		respondError(c, http.StatusTooManyRequests, "DOWNLOAD_LIMIT_REACHED", "Download limit reached")
	default:
		var se *apperr.StorageError
		if errors.As(err, &se) {
			respondError(c, http.StatusInternalServerError, "STORAGE_FAILURE", "Storage operation failed")
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid id format")
		return uuid.Nil, false
	}
	return id, true
}
