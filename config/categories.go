package config

import (
	"fmt"

	"teamvault-backend/models"
)

// MimeWildcard allows any declared mime type for a category
const MimeWildcard = "*/*"

// CategoryConfig fixes the upload limits for one file category
type CategoryConfig struct {
	MaxSize      int64
	AllowedTypes []string
	// AllowVersioning gates createVersion/restoreVersion for the category
	AllowVersioning bool
	// AllowSharing gates share-token issuance for the category
	AllowSharing bool
}

// AllowsMime reports whether the declared mime type passes the allow-list
func (c CategoryConfig) AllowsMime(mime string) bool {
	for _, t := range c.AllowedTypes {
		if t == MimeWildcard || t == mime {
			return true
		}
	}
	return false
}

// DefaultCategories returns the closed category table. Loosely-typed
// per-category settings elsewhere in the system collapse into this one
// validated mapping.
func DefaultCategories() map[models.FileCategory]CategoryConfig {
	return map[models.FileCategory]CategoryConfig{
		models.CategoryDocument: {
			MaxSize: 25 * 1024 * 1024,
			AllowedTypes: []string{
				"application/pdf",
				"text/plain",
				"application/msword",
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			},
			AllowVersioning: true,
			AllowSharing:    true,
		},
		models.CategoryImage: {
			MaxSize:         10 * 1024 * 1024,
			AllowedTypes:    []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
			AllowVersioning: true,
			AllowSharing:    true,
		},
		models.CategoryReport: {
			MaxSize:         50 * 1024 * 1024,
			AllowedTypes:    []string{"application/pdf", "text/csv", "application/vnd.ms-excel"},
			AllowVersioning: true,
			AllowSharing:    true,
		},
		models.CategoryAvatar: {
			MaxSize:         2 * 1024 * 1024,
			AllowedTypes:    []string{"image/jpeg", "image/png"},
			AllowVersioning: false,
			AllowSharing:    false,
		},
		models.CategoryArchive: {
			MaxSize:         100 * 1024 * 1024,
			AllowedTypes:    []string{MimeWildcard},
			AllowVersioning: false,
			AllowSharing:    true,
		},
	}
}

// ValidateCategories rejects a malformed category table at construction time
func ValidateCategories(categories map[models.FileCategory]CategoryConfig) error {
	if len(categories) == 0 {
		return fmt.Errorf("no categories configured")
	}
	known := map[models.FileCategory]bool{
		models.CategoryDocument: true,
		models.CategoryImage:    true,
		models.CategoryReport:   true,
		models.CategoryAvatar:   true,
		models.CategoryArchive:  true,
	}
	for cat, cfg := range categories {
		if !known[cat] {
			return fmt.Errorf("unknown category %q", cat)
		}
		if cfg.MaxSize <= 0 {
			return fmt.Errorf("category %q: max size must be positive", cat)
		}
		if len(cfg.AllowedTypes) == 0 {
			return fmt.Errorf("category %q: no allowed mime types", cat)
		}
	}
	return nil
}
