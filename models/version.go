package models

import (
	"time"

	"github.com/google/uuid"
)

// ChangeType classifies what a version entry recorded
type ChangeType string

const (
	ChangeCreate   ChangeType = "create"
	ChangeUpdate   ChangeType = "update"
	ChangeOptimize ChangeType = "optimize"
	ChangeRestore  ChangeType = "restore"
	ChangeMetadata ChangeType = "metadata"
	ChangeBackup   ChangeType = "backup"
)

// ValidChangeType reports whether t is a known change type
func ValidChangeType(t ChangeType) bool {
	switch t {
	case ChangeCreate, ChangeUpdate, ChangeOptimize, ChangeRestore, ChangeMetadata, ChangeBackup:
		return true
	}
	return false
}

// VersionBump selects the version arithmetic applied by CreateVersion
type VersionBump string

const (
	BumpMajor VersionBump = "major"
	BumpMinor VersionBump = "minor"
	BumpPatch VersionBump = "patch"
)

// MaxChangeSummaryLength caps the required change summary
const MaxChangeSummaryLength = 500

// FileVersion is an immutable snapshot of a file at a point in time
type FileVersion struct {
	ID               uuid.UUID      `json:"id"`
	FileID           uuid.UUID      `json:"file_id"`
	Version          float64        `json:"version"`
	Checksum         string         `json:"checksum"`
	Size             int64          `json:"size"`
	CreatedBy        uuid.UUID      `json:"created_by"`
	ChangeSummary    string         `json:"change_summary"`
	ChangeType       ChangeType     `json:"change_type"`
	MetadataSnapshot map[string]any `json:"metadata_snapshot"`
	CreatedAt        time.Time      `json:"created_at"`
}
