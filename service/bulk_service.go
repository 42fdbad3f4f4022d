package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
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

// BulkService applies one action to many records with per-item
// isolation. Batches are not atomic: a failed item is recorded and its
// siblings proceed. There is no rollback.
type BulkService struct {
	fileService *FileService
	files       repository.FileRepository
	versions    repository.VersionRepository
	backend     storage.Backend
	audit       *AccessLogger
	cache       *MetadataCache
	categories  map[models.FileCategory]config.CategoryConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewBulkService creates the bulk coordinator
func NewBulkService(
	fileService *FileService,
	files repository.FileRepository,
	versions repository.VersionRepository,
	backend storage.Backend,
	audit *AccessLogger,
	cache *MetadataCache,
	categories map[models.FileCategory]config.CategoryConfig,
	logger *zap.Logger,
) *BulkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkService{
		fileService: fileService,
		files:       files,
		versions:    versions,
		backend:     backend,
		audit:       audit,
		cache:       cache,
		categories:  categories,
		logger:      logger,
		now:         time.Now,
	}
}

// BulkDelete soft-deletes (or, with permanent, purges) each id.
// Permanent deletion always requires a privileged caller.
func (s *BulkService) BulkDelete(ctx context.Context, actor models.Principal, ids []uuid.UUID, permanent bool, client ClientInfo) (*models.BatchResult, error) {
	if err := checkBatchSize(ids); err != nil {
		return nil, err
	}
	if permanent && !actor.Privileged() {
		return nil, apperr.ErrForbidden
	}

	result := newBatchResult(len(ids))
	for _, id := range ids {
		var err error
		if permanent {
			err = s.fileService.Purge(ctx, id, actor, client)
		} else {
			err = s.fileService.SoftDelete(ctx, id, actor, client)
		}
		result.record(id, err)
	}
	return result.BatchResult, nil
}

// BulkMove reassigns each record to the target category. Storage keys
// are minted at upload time and stay put; only the registry changes.
func (s *BulkService) BulkMove(ctx context.Context, actor models.Principal, ids []uuid.UUID, target models.FileCategory, client ClientInfo) (*models.BatchResult, error) {
	if err := checkBatchSize(ids); err != nil {
		return nil, err
	}
	if _, ok := s.categories[target]; !ok {
		return nil, apperr.NewValidation("UNKNOWN_CATEGORY", "unknown category %q", target)
	}

	result := newBatchResult(len(ids))
	for _, id := range ids {
		result.record(id, s.moveOne(ctx, actor, id, target, client))
	}
	return result.BatchResult, nil
}

func (s *BulkService) moveOne(ctx context.Context, actor models.Principal, id uuid.UUID, target models.FileCategory, client ClientInfo) error {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.fileService.authorizeWrite(file, actor); err != nil {
		return err
	}

	expected := file.Version
	file.Category = target
	if err := s.files.UpdateCAS(ctx, file, expected); err != nil {
		return err
	}
	s.cache.Invalidate(id)
	s.audit.Log(ctx, id, actor.ID, models.ActionUpdate, models.OutcomeSuccess, client)
	return nil
}

// BulkCopy duplicates each record: new id, freshly minted storage key,
// duplicated bytes, history starting over at the initial version.
func (s *BulkService) BulkCopy(ctx context.Context, actor models.Principal, ids []uuid.UUID, client ClientInfo) (*models.BatchResult, error) {
	if err := checkBatchSize(ids); err != nil {
		return nil, err
	}

	result := newBatchResult(len(ids))
	for _, id := range ids {
		result.record(id, s.copyOne(ctx, actor, id, client))
	}
	return result.BatchResult, nil
}

func (s *BulkService) copyOne(ctx context.Context, actor models.Principal, id uuid.UUID, client ClientInfo) error {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.fileService.authorizeRead(file, actor); err != nil {
		return err
	}

	reader, err := s.backend.Get(ctx, file.StorageKey)
	if err != nil {
		return err
	}
	defer reader.Close()

	data, err := readAndVerify(reader, file)
	if err != nil {
		return err
	}

	newID := uuid.New()
	now := s.now()
	key := storage.BuildKey(string(file.Category), newID, now, file.OriginalName)

	if err := s.backend.Put(ctx, key, bytes.NewReader(data)); err != nil {
		return err
	}

	duplicate := &models.File{
		ID:           newID,
		OriginalName: file.OriginalName,
		StorageKey:   key,
		MimeType:     file.MimeType,
		Size:         file.Size,
		Checksum:     file.Checksum,
		Category:     file.Category,
		OwnerID:      actor.ID,
		Visibility:   models.VisibilityPrivate,
		Tags:         append([]string(nil), file.Tags...),
		Description:  file.Description,
		Version:      initialVersion,
	}
	if err := s.files.Create(ctx, duplicate); err != nil {
		if delErr := s.backend.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to clean up orphaned copy",
				zap.String("key", key), zap.Error(delErr))
		}
		return err
	}

	entry := &models.FileVersion{
		ID:               uuid.New(),
		FileID:           newID,
		Version:          initialVersion,
		Checksum:         duplicate.Checksum,
		Size:             duplicate.Size,
		CreatedBy:        actor.ID,
		ChangeSummary:    fmt.Sprintf("Copied from file %s", file.ID),
		ChangeType:       models.ChangeCreate,
		MetadataSnapshot: duplicate.MutableSnapshot(),
	}
	if err := s.versions.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record copy version entry",
			zap.String("file_id", newID.String()), zap.Error(err))
	}

	s.audit.Log(ctx, newID, actor.ID, models.ActionUpload, models.OutcomeSuccess, client)
	return nil
}

// BulkTag applies one tag operation to each record: add unions with
// de-duplication, remove takes the set difference, replace overwrites.
func (s *BulkService) BulkTag(ctx context.Context, actor models.Principal, ids []uuid.UUID, mode models.TagMode, tags []string, client ClientInfo) (*models.BatchResult, error) {
	if err := checkBatchSize(ids); err != nil {
		return nil, err
	}
	switch mode {
	case models.TagAdd, models.TagRemove, models.TagReplace:
	default:
		return nil, apperr.NewValidation("INVALID_TAG_MODE", "tag mode must be add, remove or replace")
	}
	if err := validation.ValidateTags(tags); err != nil {
		return nil, err
	}

	result := newBatchResult(len(ids))
	for _, id := range ids {
		result.record(id, s.tagOne(ctx, actor, id, mode, tags, client))
	}
	return result.BatchResult, nil
}

func (s *BulkService) tagOne(ctx context.Context, actor models.Principal, id uuid.UUID, mode models.TagMode, tags []string, client ClientInfo) error {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.fileService.authorizeWrite(file, actor); err != nil {
		return err
	}

	var next []string
	switch mode {
	case models.TagAdd:
		next = append(append([]string(nil), file.Tags...), tags...)
		next = dedupeTags(next)
	case models.TagRemove:
		drop := make(map[string]bool, len(tags))
		for _, tag := range tags {
			drop[tag] = true
		}
		for _, tag := range file.Tags {
			if !drop[tag] {
				next = append(next, tag)
			}
		}
	case models.TagReplace:
		next = dedupeTags(tags)
	}

	if len(next) > models.MaxTagsPerFile {
		return apperr.NewValidation("TOO_MANY_TAGS",
			"operation would leave %d tags, limit is %d", len(next), models.MaxTagsPerFile)
	}

	expected := file.Version
	file.Tags = next
	if err := s.files.UpdateCAS(ctx, file, expected); err != nil {
		return err
	}
	s.cache.Invalidate(id)
	s.audit.Log(ctx, id, actor.ID, models.ActionUpdate, models.OutcomeSuccess, client)
	return nil
}

func checkBatchSize(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return apperr.NewValidation("EMPTY_BATCH", "at least one id is required")
	}
	if len(ids) > models.MaxBatchSize {
		return apperr.NewValidation("BATCH_TOO_LARGE",
			"batch of %d exceeds limit of %d", len(ids), models.MaxBatchSize)
	}
	return nil
}

type batchResult struct {
	*models.BatchResult
}

func newBatchResult(total int) *batchResult {
	return &batchResult{&models.BatchResult{
		Total:      total,
		Successful: []uuid.UUID{},
		Failed:     []models.BatchFailure{},
	}}
}

// record files one per-item outcome, translating errors into stable reasons
func (r *batchResult) record(id uuid.UUID, err error) {
	if err == nil {
		r.Successful = append(r.Successful, id)
		return
	}
	r.Failed = append(r.Failed, models.BatchFailure{ID: id, Reason: failureReason(err)})
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "not found"
	case errors.Is(err, apperr.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	case apperr.IsValidation(err):
		var ve *apperr.ValidationError
		errors.As(err, &ve)
		return ve.Message
	default:
		return err.Error()
	}
}
