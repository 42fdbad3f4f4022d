package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"teamvault-backend/apperr"
	"teamvault-backend/config"
	"teamvault-backend/models"
	"teamvault-backend/repository"
	"teamvault-backend/storage"
	"teamvault-backend/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// initialVersion is the version assigned to a freshly uploaded file
const initialVersion = 1.0

// FileService owns the upload pipeline and the metadata registry:
// validation, content storage, record CRUD, soft delete and purge.
type FileService struct {
	files      repository.FileRepository
	versions   repository.VersionRepository
	shares     repository.ShareRepository
	logs       repository.AccessLogRepository
	backend    storage.Backend
	audit      *AccessLogger
	cache      *MetadataCache
	categories map[models.FileCategory]config.CategoryConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewFileService creates the file service
func NewFileService(
	files repository.FileRepository,
	versions repository.VersionRepository,
	shares repository.ShareRepository,
	logs repository.AccessLogRepository,
	backend storage.Backend,
	audit *AccessLogger,
	cache *MetadataCache,
	categories map[models.FileCategory]config.CategoryConfig,
	logger *zap.Logger,
) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{
		files:      files,
		versions:   versions,
		shares:     shares,
		logs:       logs,
		backend:    backend,
		audit:      audit,
		cache:      cache,
		categories: categories,
		logger:     logger,
		now:        time.Now,
	}
}

// UploadRequest carries an upload through validation and storage
type UploadRequest struct {
	Data         []byte
	Name         string
	DeclaredMime string
	Category     models.FileCategory
	OwnerID      uuid.UUID
	Visibility   models.Visibility
	Description  string
	Tags         []string
	ExpiresAt    *time.Time
	Client       ClientInfo
}

// Upload validates the content, stores the bytes and creates the record
// plus its initial version entry. Validation is entirely side-effect
// free: a rejection leaves no partial state.
func (s *FileService) Upload(ctx context.Context, req UploadRequest) (*models.File, error) {
	cfg, ok := s.categories[req.Category]
	if !ok {
		return nil, apperr.NewValidation("UNKNOWN_CATEGORY", "unknown category %q", req.Category)
	}

	if err := validation.Validate(req.Data, req.Name, req.DeclaredMime, int64(len(req.Data)), cfg); err != nil {
		return nil, err
	}
	if err := validation.ValidateTags(req.Tags); err != nil {
		return nil, err
	}
	if err := validation.ValidateDescription(req.Description); err != nil {
		return nil, err
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}

	id := uuid.New()
	now := s.now()
	key := storage.BuildKey(string(req.Category), id, now, req.Name)

	if err := s.backend.Put(ctx, key, bytes.NewReader(req.Data)); err != nil {
		return nil, err
	}

	file := &models.File{
		ID:           id,
		OriginalName: req.Name,
		StorageKey:   key,
		MimeType:     req.DeclaredMime,
		Size:         int64(len(req.Data)),
		Checksum:     storage.Checksum(req.Data),
		Category:     req.Category,
		OwnerID:      req.OwnerID,
		Visibility:   visibility,
		Tags:         dedupeTags(req.Tags),
		Description:  req.Description,
		Version:      initialVersion,
		ExpiresAt:    req.ExpiresAt,
	}

	if err := s.files.Create(ctx, file); err != nil {
		// Clean up the stored bytes so a failed insert leaves nothing behind
		if delErr := s.backend.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to clean up orphaned object",
				zap.String("key", key), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}

	entry := &models.FileVersion{
		ID:               uuid.New(),
		FileID:           file.ID,
		Version:          initialVersion,
		Checksum:         file.Checksum,
		Size:             file.Size,
		CreatedBy:        req.OwnerID,
		ChangeSummary:    "Initial upload",
		ChangeType:       models.ChangeCreate,
		MetadataSnapshot: file.MutableSnapshot(),
	}
	if err := s.versions.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record initial version entry",
			zap.String("file_id", file.ID.String()), zap.Error(err))
	}

	s.audit.Log(ctx, file.ID, req.OwnerID, models.ActionUpload, models.OutcomeSuccess, req.Client)
	s.logger.Info("file uploaded",
		zap.String("file_id", file.ID.String()),
		zap.String("category", string(file.Category)),
		zap.Int64("size", file.Size))

	return file, nil
}

// GetFile returns the record if the actor may read it. Soft-deleted
// records stay addressable for privileged callers only.
func (s *FileService) GetFile(ctx context.Context, id uuid.UUID, actor models.Principal) (*models.File, error) {
	file, cached := s.cache.Get(id)
	if !cached {
		var err error
		file, err = s.files.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		s.cache.Set(file)
	}
	if err := s.authorizeRead(file, actor); err != nil {
		return nil, err
	}
	return file, nil
}

// Download returns the record and its verified bytes
func (s *FileService) Download(ctx context.Context, id uuid.UUID, actor models.Principal, client ClientInfo) (*models.File, []byte, error) {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := s.authorizeRead(file, actor); err != nil {
		s.audit.Log(ctx, id, actor.ID, models.ActionDownload, models.OutcomeDenied, client)
		return nil, nil, err
	}

	data, err := s.readVerified(ctx, file)
	if err != nil {
		s.audit.Log(ctx, id, actor.ID, models.ActionDownload, models.OutcomeFailure, client)
		return nil, nil, err
	}

	now := s.now()
	if err := s.files.IncrementDownload(ctx, id, now); err != nil {
		s.logger.Warn("failed to bump download count",
			zap.String("file_id", id.String()), zap.Error(err))
	}
	s.cache.Invalidate(id)

	s.audit.Log(ctx, id, actor.ID, models.ActionDownload, models.OutcomeSuccess, client)
	return file, data, nil
}

// readVerified fetches the stored bytes and checks them against the
// record's checksum. Content failing the check must not be served.
func (s *FileService) readVerified(ctx context.Context, file *models.File) ([]byte, error) {
	reader, err := s.backend.Get(ctx, file.StorageKey)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return readAndVerify(reader, file)
}

// readAndVerify drains the reader and rejects bytes that no longer
// match the record's checksum
func readAndVerify(reader io.Reader, file *models.File) ([]byte, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, &apperr.StorageError{Op: "read", Key: file.StorageKey, Err: err}
	}
	if actual := storage.Checksum(data); actual != file.Checksum {
		return nil, &apperr.IntegrityError{FileID: file.ID, Expected: file.Checksum, Actual: actual}
	}
	return data, nil
}

// UpdateRequest is a targeted partial update; nil fields are untouched
type UpdateRequest struct {
	Name        *string
	Description *string
	Visibility  *models.Visibility
	Tags        []string
	ExpiresAt   *time.Time
	Client      ClientInfo
}

// Update applies a partial metadata update and refreshes updated_at
func (s *FileService) Update(ctx context.Context, id uuid.UUID, actor models.Principal, req UpdateRequest) (*models.File, error) {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeWrite(file, actor); err != nil {
		return nil, err
	}

	if req.Name != nil {
		file.OriginalName = *req.Name
	}
	if req.Description != nil {
		if err := validation.ValidateDescription(*req.Description); err != nil {
			return nil, err
		}
		file.Description = *req.Description
	}
	if req.Visibility != nil {
		if *req.Visibility != models.VisibilityPublic && *req.Visibility != models.VisibilityPrivate {
			return nil, apperr.NewValidation("INVALID_VISIBILITY", "visibility must be public or private")
		}
		file.Visibility = *req.Visibility
	}
	if req.Tags != nil {
		if err := validation.ValidateTags(req.Tags); err != nil {
			return nil, err
		}
		file.Tags = dedupeTags(req.Tags)
	}
	if req.ExpiresAt != nil {
		file.ExpiresAt = req.ExpiresAt
	}

	if err := s.files.Update(ctx, file); err != nil {
		return nil, err
	}
	s.cache.Invalidate(id)
	s.audit.Log(ctx, id, actor.ID, models.ActionUpdate, models.OutcomeSuccess, req.Client)
	return file, nil
}

// ListRequest filters and paginates the registry listing
type ListRequest struct {
	Category       *models.FileCategory
	Visibility     *models.Visibility
	Tag            string
	Search         string
	OwnerOnly      bool
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// List returns records visible to the actor. Soft-deleted records are
// included only for privileged callers that ask for them.
func (s *FileService) List(ctx context.Context, actor models.Principal, req ListRequest) ([]*models.File, error) {
	filter := repository.FileFilter{
		Category:   req.Category,
		Visibility: req.Visibility,
		Tag:        req.Tag,
		Search:     req.Search,
		Limit:      req.Limit,
		Offset:     req.Offset,
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if req.IncludeDeleted && actor.Privileged() {
		filter.IncludeDeleted = true
	}
	if req.OwnerOnly || !actor.Privileged() {
		// Non-privileged listings are scoped to the caller's own files
		owner := actor.ID
		filter.OwnerID = &owner
	}
	return s.files.List(ctx, filter)
}

// SoftDelete marks a record deleted and deactivates its active shares.
// The record stays recoverable until the retention window passes.
func (s *FileService) SoftDelete(ctx context.Context, id uuid.UUID, actor models.Principal, client ClientInfo) error {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeWrite(file, actor); err != nil {
		s.audit.Log(ctx, id, actor.ID, models.ActionDelete, models.OutcomeDenied, client)
		return err
	}

	if err := s.files.SoftDelete(ctx, id, actor.ID, s.now()); err != nil {
		return err
	}
	if err := s.shares.DeactivateByFile(ctx, id); err != nil {
		s.logger.Warn("failed to deactivate shares of deleted file",
			zap.String("file_id", id.String()), zap.Error(err))
	}
	s.cache.Invalidate(id)
	s.audit.Log(ctx, id, actor.ID, models.ActionDelete, models.OutcomeSuccess, client)
	return nil
}

// Purge irreversibly removes the record, its versions, shares, audit
// trail and stored bytes. Always requires a privileged caller.
func (s *FileService) Purge(ctx context.Context, id uuid.UUID, actor models.Principal, client ClientInfo) error {
	if !actor.Privileged() {
		s.audit.Log(ctx, id, actor.ID, models.ActionPurge, models.OutcomeDenied, client)
		return apperr.ErrForbidden
	}

	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.backend.Delete(ctx, file.StorageKey); err != nil {
		// Surface the storage failure; the metadata stays so the purge
		// can be retried.
		return err
	}
	if err := s.versions.DeleteByFile(ctx, id); err != nil {
		return fmt.Errorf("failed to purge versions: %w", err)
	}
	if err := s.shares.DeleteByFile(ctx, id); err != nil {
		return fmt.Errorf("failed to purge shares: %w", err)
	}
	if err := s.logs.DeleteByFile(ctx, id); err != nil {
		return fmt.Errorf("failed to purge access logs: %w", err)
	}
	if err := s.files.Purge(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(id)

	s.logger.Info("file purged",
		zap.String("file_id", id.String()),
		zap.String("actor_id", actor.ID.String()))
	return nil
}

func (s *FileService) authorizeRead(file *models.File, actor models.Principal) error {
	if file.SoftDeleted && !actor.Privileged() {
		return apperr.ErrNotFound
	}
	if file.Visibility == models.VisibilityPrivate && file.OwnerID != actor.ID && !actor.Privileged() {
		return apperr.ErrForbidden
	}
	return nil
}

func (s *FileService) authorizeWrite(file *models.File, actor models.Principal) error {
	if file.SoftDeleted && !actor.Privileged() {
		return apperr.ErrNotFound
	}
	if file.OwnerID != actor.ID && !actor.Privileged() {
		return apperr.ErrForbidden
	}
	return nil
}

func dedupeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}
