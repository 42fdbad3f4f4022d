package models

import (
	"time"

	"github.com/google/uuid"
)

// FileCategory is the closed set of upload categories
type FileCategory string

const (
	CategoryDocument FileCategory = "document"
	CategoryImage    FileCategory = "image"
	CategoryReport   FileCategory = "report"
	CategoryAvatar   FileCategory = "avatar"
	CategoryArchive  FileCategory = "archive"
)

// Visibility controls who can read a file
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// MaxTagsPerFile is the hard cap on tags per record
const MaxTagsPerFile = 50

// MaxDescriptionLength caps the free-text description
const MaxDescriptionLength = 1000

// File represents a stored file record
type File struct {
	ID            uuid.UUID    `json:"id"`
	OriginalName  string       `json:"original_name"`
	StorageKey    string       `json:"storage_key"`
	MimeType      string       `json:"mime_type"`
	Size          int64        `json:"size"`
	Checksum      string       `json:"checksum"`
	Category      FileCategory `json:"category"`
	OwnerID       uuid.UUID    `json:"owner_id"`
	Visibility    Visibility   `json:"visibility"`
	Tags          []string     `json:"tags"`
	Description   string       `json:"description"`
	Version       float64      `json:"version"`
	SoftDeleted   bool         `json:"soft_deleted"`
	DeletedAt     *time.Time   `json:"deleted_at,omitempty"`
	DeletedBy     *uuid.UUID   `json:"deleted_by,omitempty"`
	DownloadCount int64        `json:"download_count"`
	LastAccessed  *time.Time   `json:"last_accessed,omitempty"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// HasTag reports whether the record already carries the tag
func (f *File) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MutableSnapshot captures the mutable fields preserved by version snapshots
func (f *File) MutableSnapshot() map[string]any {
	return map[string]any{
		"original_name": f.OriginalName,
		"mime_type":     f.MimeType,
		"size":          f.Size,
		"checksum":      f.Checksum,
		"category":      string(f.Category),
		"visibility":    string(f.Visibility),
		"tags":          append([]string(nil), f.Tags...),
		"description":   f.Description,
	}
}

// ApplySnapshot overwrites the mutable fields from a version snapshot.
// Unknown or missing keys leave the current value in place.
func (f *File) ApplySnapshot(snap map[string]any) {
	if v, ok := snap["original_name"].(string); ok {
		f.OriginalName = v
	}
	if v, ok := snap["mime_type"].(string); ok {
		f.MimeType = v
	}
	switch v := snap["size"].(type) {
	case int64:
		f.Size = v
	case float64: // JSON round-trip decodes numbers as float64
		f.Size = int64(v)
	}
	if v, ok := snap["checksum"].(string); ok {
		f.Checksum = v
	}
	if v, ok := snap["category"].(string); ok {
		f.Category = FileCategory(v)
	}
	if v, ok := snap["visibility"].(string); ok {
		f.Visibility = Visibility(v)
	}
	switch v := snap["tags"].(type) {
	case []string:
		f.Tags = append([]string(nil), v...)
	case []any:
		tags := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
		f.Tags = tags
	}
	if v, ok := snap["description"].(string); ok {
		f.Description = v
	}
}
