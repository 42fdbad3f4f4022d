package service

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"time"

	"teamvault-backend/apperr"
	"teamvault-backend/config"
	"teamvault-backend/models"
	"teamvault-backend/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VersionService creates and restores immutable version snapshots.
// Version mutations go through compare-and-set updates keyed on the
// expected prior version, so two concurrent bumps or restores on one
// record cannot both succeed.
type VersionService struct {
	files      repository.FileRepository
	versions   repository.VersionRepository
	audit      *AccessLogger
	cache      *MetadataCache
	categories map[models.FileCategory]config.CategoryConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewVersionService creates the version service
func NewVersionService(
	files repository.FileRepository,
	versions repository.VersionRepository,
	audit *AccessLogger,
	cache *MetadataCache,
	categories map[models.FileCategory]config.CategoryConfig,
	logger *zap.Logger,
) *VersionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VersionService{
		files:      files,
		versions:   versions,
		audit:      audit,
		cache:      cache,
		categories: categories,
		logger:     logger,
		now:        time.Now,
	}
}

// BumpVersion applies version arithmetic in integer hundredths so the
// two-decimal rounding is exact: major = floor(v)+1, minor = v+0.1,
// patch = v+0.01.
func BumpVersion(current float64, bump models.VersionBump) float64 {
	hundredths := int(math.Round(current * 100))
	switch bump {
	case models.BumpMajor:
		hundredths = (hundredths/100)*100 + 100
	case models.BumpMinor:
		hundredths += 10
	case models.BumpPatch:
		hundredths++
	}
	return float64(hundredths) / 100
}

// CreateVersionRequest describes a version-creating operation
type CreateVersionRequest struct {
	ChangeSummary string
	ChangeType    models.ChangeType
	Bump          models.VersionBump
	Client        ClientInfo
}

// CreateVersion snapshots the record's mutable fields and advances the
// live version. The snapshot is taken before the bump is applied.
func (s *VersionService) CreateVersion(ctx context.Context, fileID uuid.UUID, actor models.Principal, req CreateVersionRequest) (*models.FileVersion, error) {
	file, err := s.getVersionable(ctx, fileID, actor)
	if err != nil {
		return nil, err
	}

	if req.ChangeSummary == "" {
		return nil, apperr.NewValidation("MISSING_SUMMARY", "change summary is required")
	}
	if len(req.ChangeSummary) > models.MaxChangeSummaryLength {
		return nil, apperr.NewValidation("SUMMARY_TOO_LONG",
			"change summary exceeds %d characters", models.MaxChangeSummaryLength)
	}
	if !models.ValidChangeType(req.ChangeType) {
		return nil, apperr.NewValidation("INVALID_CHANGE_TYPE", "unknown change type %q", req.ChangeType)
	}
	switch req.Bump {
	case models.BumpMajor, models.BumpMinor, models.BumpPatch:
	default:
		return nil, apperr.NewValidation("INVALID_BUMP", "bump must be major, minor or patch")
	}

	snapshot := file.MutableSnapshot()
	expected := file.Version
	file.Version = BumpVersion(expected, req.Bump)

	if err := s.files.UpdateCAS(ctx, file, expected); err != nil {
		return nil, err
	}
	s.cache.Invalidate(fileID)

	entry := &models.FileVersion{
		ID:               uuid.New(),
		FileID:           fileID,
		Version:          file.Version,
		Checksum:         file.Checksum,
		Size:             file.Size,
		CreatedBy:        actor.ID,
		ChangeSummary:    req.ChangeSummary,
		ChangeType:       req.ChangeType,
		MetadataSnapshot: snapshot,
	}
	if err := s.versions.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record version entry: %w", err)
	}

	s.audit.Log(ctx, fileID, actor.ID, models.ActionVersionCreate, models.OutcomeSuccess, req.Client)
	return entry, nil
}

// ListVersions returns history ordered by version descending
func (s *VersionService) ListVersions(ctx context.Context, fileID uuid.UUID, actor models.Principal, limit, offset int) ([]*models.FileVersion, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.SoftDeleted && !actor.Privileged() {
		return nil, apperr.ErrNotFound
	}
	if file.Visibility == models.VisibilityPrivate && file.OwnerID != actor.ID && !actor.Privileged() {
		return nil, apperr.ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.versions.ListByFile(ctx, fileID, limit, offset)
}

// RestoreVersion overwrites the live record's mutable fields from the
// target snapshot and sets the live version to the target number. With
// createBackup, the pre-restore state is preserved as a backup-typed
// entry once the restore has won the version check.
func (s *VersionService) RestoreVersion(ctx context.Context, fileID uuid.UUID, actor models.Principal, targetVersion float64, createBackup bool, client ClientInfo) (*models.File, error) {
	file, err := s.getVersionable(ctx, fileID, actor)
	if err != nil {
		return nil, err
	}

	if file.Version == targetVersion {
		// Restoring to the current version is a no-op and rejected
		return nil, fmt.Errorf("already at version %.2f: %w", targetVersion, apperr.ErrConflict)
	}

	target, err := s.versions.GetByVersion(ctx, fileID, targetVersion)
	if err != nil {
		return nil, err
	}

	// The pre-restore state is captured before the snapshot overwrites
	// it, but not written yet: a restore that loses the version check
	// must leave no history behind.
	var backup *models.FileVersion
	if createBackup {
		backup = &models.FileVersion{
			ID:               uuid.New(),
			FileID:           fileID,
			Version:          file.Version,
			Checksum:         file.Checksum,
			Size:             file.Size,
			CreatedBy:        actor.ID,
			ChangeSummary:    fmt.Sprintf("Automatic backup before restore to version %.2f", targetVersion),
			ChangeType:       models.ChangeBackup,
			MetadataSnapshot: file.MutableSnapshot(),
		}
	}

	expected := file.Version
	file.ApplySnapshot(target.MetadataSnapshot)
	file.Checksum = target.Checksum
	file.Size = target.Size
	file.Version = targetVersion

	if err := s.files.UpdateCAS(ctx, file, expected); err != nil {
		return nil, err
	}
	s.cache.Invalidate(fileID)

	if backup != nil {
		if err := s.versions.Create(ctx, backup); err != nil {
			s.logger.Warn("failed to record backup entry",
				zap.String("file_id", fileID.String()), zap.Error(err))
		}
	}

	entry := &models.FileVersion{
		ID:               uuid.New(),
		FileID:           fileID,
		Version:          targetVersion,
		Checksum:         file.Checksum,
		Size:             file.Size,
		CreatedBy:        actor.ID,
		ChangeSummary:    fmt.Sprintf("Restored to version %.2f", targetVersion),
		ChangeType:       models.ChangeRestore,
		MetadataSnapshot: file.MutableSnapshot(),
	}
	if err := s.versions.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record restore entry",
			zap.String("file_id", fileID.String()), zap.Error(err))
	}

	s.audit.Log(ctx, fileID, actor.ID, models.ActionRestore, models.OutcomeSuccess, client)
	return file, nil
}

// DiffEntry classifies one snapshot key in a version comparison
type DiffEntry struct {
	Status string `json:"status"` // added, removed or changed
	From   any    `json:"from,omitempty"`
	To     any    `json:"to,omitempty"`
}

// DiffVersions compares two snapshots by value. The result is for
// display only; conflicting edits resolve last-write-wins elsewhere.
func (s *VersionService) DiffVersions(ctx context.Context, fileID uuid.UUID, actor models.Principal, versionA, versionB float64) (map[string]DiffEntry, error) {
	if _, err := s.ListVersions(ctx, fileID, actor, 1, 0); err != nil {
		return nil, err
	}

	a, err := s.versions.GetByVersion(ctx, fileID, versionA)
	if err != nil {
		return nil, err
	}
	b, err := s.versions.GetByVersion(ctx, fileID, versionB)
	if err != nil {
		return nil, err
	}

	return DiffSnapshots(a.MetadataSnapshot, b.MetadataSnapshot), nil
}

// DiffSnapshots classifies every key present in either snapshot
func DiffSnapshots(from, to map[string]any) map[string]DiffEntry {
	diff := make(map[string]DiffEntry)
	for key, fromVal := range from {
		toVal, ok := to[key]
		switch {
		case !ok:
			diff[key] = DiffEntry{Status: "removed", From: fromVal}
		case !reflect.DeepEqual(fromVal, toVal):
			diff[key] = DiffEntry{Status: "changed", From: fromVal, To: toVal}
		}
	}
	for key, toVal := range to {
		if _, ok := from[key]; !ok {
			diff[key] = DiffEntry{Status: "added", To: toVal}
		}
	}
	return diff
}

// getVersionable loads the file and checks the actor may version it
func (s *VersionService) getVersionable(ctx context.Context, fileID uuid.UUID, actor models.Principal) (*models.File, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.SoftDeleted {
		if !actor.Privileged() {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("file is deleted: %w", apperr.ErrConflict)
	}
	if file.OwnerID != actor.ID && !actor.Privileged() {
		return nil, apperr.ErrForbidden
	}
	if cfg, ok := s.categories[file.Category]; ok && !cfg.AllowVersioning {
		return nil, apperr.NewValidation("VERSIONING_DISABLED",
			"category %q does not support versioning", file.Category)
	}
	return file, nil
}
