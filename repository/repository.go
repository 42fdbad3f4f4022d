// Package repository persists file records, version snapshots, share
// tokens and access logs. Two implementations exist for each store: a
// Postgres one (pgx, raw SQL) and an in-memory one used by tests and
// storage-only development setups. Mutations that must be serialized per
// record (version bumps, download counts, delete flags) go through
// conditional updates so concurrent writers cannot both succeed.
package repository

import (
	"context"
	"time"

	"teamvault-backend/models"

	"github.com/google/uuid"
)

// FileFilter narrows List results. Zero values mean "no constraint".
type FileFilter struct {
	OwnerID        *uuid.UUID
	Category       *models.FileCategory
	Visibility     *models.Visibility
	Tag            string
	Search         string // matched against original name and description
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// FileRepository is the metadata registry store
type FileRepository interface {
	Create(ctx context.Context, file *models.File) error

	// GetByID returns the record regardless of its soft-delete flag;
	// visibility of deleted records is the service layer's decision.
	GetByID(ctx context.Context, id uuid.UUID) (*models.File, error)

	List(ctx context.Context, filter FileFilter) ([]*models.File, error)

	// Update writes the mutable fields and refreshes updated_at
	Update(ctx context.Context, file *models.File) error

	// UpdateCAS writes the record only if its stored version still equals
	// expectedVersion; returns apperr.ErrConflict otherwise.
	UpdateCAS(ctx context.Context, file *models.File, expectedVersion float64) error

	// IncrementDownload atomically bumps download_count and last_accessed
	IncrementDownload(ctx context.Context, id uuid.UUID, at time.Time) error

	// SoftDelete flips the delete flag; apperr.ErrConflict if already deleted
	SoftDelete(ctx context.Context, id uuid.UUID, by uuid.UUID, at time.Time) error

	// Purge removes the record row entirely
	Purge(ctx context.Context, id uuid.UUID) error

	// ListPurgeable returns soft-deleted records whose deletion happened
	// before the cutoff.
	ListPurgeable(ctx context.Context, cutoff time.Time) ([]*models.File, error)

	// ListExpired returns live records whose expires_at has passed
	ListExpired(ctx context.Context, now time.Time) ([]*models.File, error)
}

// VersionRepository is the insert-only version history store
type VersionRepository interface {
	Create(ctx context.Context, version *models.FileVersion) error

	// ListByFile returns history ordered by version desc, newest first
	ListByFile(ctx context.Context, fileID uuid.UUID, limit, offset int) ([]*models.FileVersion, error)

	// GetByVersion returns the most recently created entry carrying the
	// given version number (restores can re-mint old numbers).
	GetByVersion(ctx context.Context, fileID uuid.UUID, version float64) (*models.FileVersion, error)

	// DeleteByFile removes all history for a file; full purge only
	DeleteByFile(ctx context.Context, fileID uuid.UUID) error
}

// ShareRepository stores share tokens. Tokens are mutated only by
// flipping active to false or incrementing download_count.
type ShareRepository interface {
	Create(ctx context.Context, share *models.ShareToken) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ShareToken, error)
	GetByToken(ctx context.Context, token string) (*models.ShareToken, error)
	ListByFile(ctx context.Context, fileID uuid.UUID) ([]*models.ShareToken, error)

	Deactivate(ctx context.Context, id uuid.UUID) error

	// ConsumeDownload increments download_count if and only if the token
	// is still active and below its cap; returns apperr.ErrLimitReached
	// when the cap is already exhausted. Atomic relative to concurrent
	// consumers of the same token.
	ConsumeDownload(ctx context.Context, id uuid.UUID) error

	// DeactivateExpired flips active off for every expired token
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)

	// DeactivateByFile deactivates all of a file's tokens (soft delete)
	DeactivateByFile(ctx context.Context, fileID uuid.UUID) error

	// DeleteByFile removes all of a file's tokens; full purge only
	DeleteByFile(ctx context.Context, fileID uuid.UUID) error
}

// AccessLogRepository is the append-only audit sink
type AccessLogRepository interface {
	Append(ctx context.Context, entry *models.AccessLogEntry) error
	ListByFile(ctx context.Context, fileID uuid.UUID, limit, offset int) ([]*models.AccessLogEntry, error)

	// DeleteByFile removes a file's audit trail; full purge only
	DeleteByFile(ctx context.Context, fileID uuid.UUID) error
}
