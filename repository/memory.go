package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"teamvault-backend/apperr"
	"teamvault-backend/models"

	"github.com/google/uuid"
)

// MemoryFileRepository is a mutex-guarded in-memory FileRepository.
// The single lock per store gives the same per-record serialization the
// Postgres conditional updates provide.
type MemoryFileRepository struct {
	mu    sync.Mutex
	files map[uuid.UUID]*models.File
}

// NewMemoryFileRepository creates an empty in-memory file repository
func NewMemoryFileRepository() *MemoryFileRepository {
	return &MemoryFileRepository{files: make(map[uuid.UUID]*models.File)}
}

func cloneFile(f *models.File) *models.File {
	c := *f
	c.Tags = append([]string(nil), f.Tags...)
	return &c
}

// Create inserts a new record
func (r *MemoryFileRepository) Create(ctx context.Context, file *models.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.files[file.ID]; exists {
		return apperr.ErrConflict
	}
	now := time.Now()
	if file.CreatedAt.IsZero() {
		file.CreatedAt = now
	}
	file.UpdatedAt = now
	r.files[file.ID] = cloneFile(file)
	return nil
}

// GetByID returns the record, soft-deleted or not
func (r *MemoryFileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return cloneFile(file), nil
}

// List returns records matching the filter, newest first
func (r *MemoryFileRepository) List(ctx context.Context, filter FileFilter) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*models.File
	for _, file := range r.files {
		if file.SoftDeleted && !filter.IncludeDeleted {
			continue
		}
		if filter.OwnerID != nil && file.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.Category != nil && file.Category != *filter.Category {
			continue
		}
		if filter.Visibility != nil && file.Visibility != *filter.Visibility {
			continue
		}
		if filter.Tag != "" && !file.HasTag(filter.Tag) {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(file.OriginalName), needle) &&
				!strings.Contains(strings.ToLower(file.Description), needle) {
				continue
			}
		}
		matched = append(matched, cloneFile(file))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Update writes the mutable fields and refreshes updated_at
func (r *MemoryFileRepository) Update(ctx context.Context, file *models.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.files[file.ID]
	if !ok {
		return apperr.ErrNotFound
	}
	r.applyUpdate(current, file)
	return nil
}

// UpdateCAS writes the record only if the stored version is unchanged
func (r *MemoryFileRepository) UpdateCAS(ctx context.Context, file *models.File, expectedVersion float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.files[file.ID]
	if !ok {
		return apperr.ErrNotFound
	}
	if current.Version != expectedVersion {
		return apperr.ErrConflict
	}
	r.applyUpdate(current, file)
	return nil
}

func (r *MemoryFileRepository) applyUpdate(current, file *models.File) {
	current.OriginalName = file.OriginalName
	current.MimeType = file.MimeType
	current.Size = file.Size
	current.Checksum = file.Checksum
	current.Category = file.Category
	current.Visibility = file.Visibility
	current.Tags = append([]string(nil), file.Tags...)
	current.Description = file.Description
	current.Version = file.Version
	current.ExpiresAt = file.ExpiresAt
	current.UpdatedAt = time.Now()
	file.UpdatedAt = current.UpdatedAt
}

// IncrementDownload bumps download_count and last_accessed
func (r *MemoryFileRepository) IncrementDownload(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[id]
	if !ok {
		return apperr.ErrNotFound
	}
	file.DownloadCount++
	file.LastAccessed = &at
	return nil
}

// SoftDelete marks the record deleted; conflicts if already deleted
func (r *MemoryFileRepository) SoftDelete(ctx context.Context, id uuid.UUID, by uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if file.SoftDeleted {
		return apperr.ErrConflict
	}
	file.SoftDeleted = true
	file.DeletedAt = &at
	file.DeletedBy = &by
	file.UpdatedAt = time.Now()
	return nil
}

// Purge removes the record entirely
func (r *MemoryFileRepository) Purge(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.files, id)
	return nil
}

// ListPurgeable returns soft-deleted records past the retention cutoff
func (r *MemoryFileRepository) ListPurgeable(ctx context.Context, cutoff time.Time) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*models.File
	for _, file := range r.files {
		if file.SoftDeleted && file.DeletedAt != nil && file.DeletedAt.Before(cutoff) {
			matched = append(matched, cloneFile(file))
		}
	}
	return matched, nil
}

// ListExpired returns live records whose expires_at has passed
func (r *MemoryFileRepository) ListExpired(ctx context.Context, now time.Time) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*models.File
	for _, file := range r.files {
		if !file.SoftDeleted && file.ExpiresAt != nil && file.ExpiresAt.Before(now) {
			matched = append(matched, cloneFile(file))
		}
	}
	return matched, nil
}

// MemoryVersionRepository is an in-memory, insert-only VersionRepository
type MemoryVersionRepository struct {
	mu       sync.Mutex
	versions map[uuid.UUID][]*models.FileVersion
}

// NewMemoryVersionRepository creates an empty in-memory version repository
func NewMemoryVersionRepository() *MemoryVersionRepository {
	return &MemoryVersionRepository{versions: make(map[uuid.UUID][]*models.FileVersion)}
}

func cloneVersion(v *models.FileVersion) *models.FileVersion {
	c := *v
	if v.MetadataSnapshot != nil {
		c.MetadataSnapshot = make(map[string]any, len(v.MetadataSnapshot))
		for k, val := range v.MetadataSnapshot {
			c.MetadataSnapshot[k] = val
		}
	}
	return &c
}

// Create appends a version entry
func (r *MemoryVersionRepository) Create(ctx context.Context, version *models.FileVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now()
	}
	r.versions[version.FileID] = append(r.versions[version.FileID], cloneVersion(version))
	return nil
}

// ListByFile returns history ordered by version desc, newest entry first
func (r *MemoryVersionRepository) ListByFile(ctx context.Context, fileID uuid.UUID, limit, offset int) ([]*models.FileVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.versions[fileID]
	sorted := make([]*models.FileVersion, 0, len(entries))
	for _, e := range entries {
		sorted = append(sorted, cloneVersion(e))
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Version != sorted[j].Version {
			return sorted[i].Version > sorted[j].Version
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	if offset > 0 {
		if offset >= len(sorted) {
			return nil, nil
		}
		sorted = sorted[offset:]
	}
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// GetByVersion returns the most recently created entry with that number
func (r *MemoryVersionRepository) GetByVersion(ctx context.Context, fileID uuid.UUID, version float64) (*models.FileVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.versions[fileID]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Version == version {
			return cloneVersion(entries[i]), nil
		}
	}
	return nil, apperr.ErrNotFound
}

// DeleteByFile removes all history for a file
func (r *MemoryVersionRepository) DeleteByFile(ctx context.Context, fileID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.versions, fileID)
	return nil
}

// MemoryShareRepository is an in-memory ShareRepository. ConsumeDownload
// runs its cap check and increment under the store lock, mirroring the
// atomic conditional update of the Postgres implementation.
type MemoryShareRepository struct {
	mu      sync.Mutex
	shares  map[uuid.UUID]*models.ShareToken
	byToken map[string]uuid.UUID
}

// NewMemoryShareRepository creates an empty in-memory share repository
func NewMemoryShareRepository() *MemoryShareRepository {
	return &MemoryShareRepository{
		shares:  make(map[uuid.UUID]*models.ShareToken),
		byToken: make(map[string]uuid.UUID),
	}
}

func cloneShare(s *models.ShareToken) *models.ShareToken {
	c := *s
	c.AllowedDomains = append([]string(nil), s.AllowedDomains...)
	if s.MaxDownloads != nil {
		max := *s.MaxDownloads
		c.MaxDownloads = &max
	}
	return &c
}

// Create inserts a share token
func (r *MemoryShareRepository) Create(ctx context.Context, share *models.ShareToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byToken[share.Token]; exists {
		return apperr.ErrConflict
	}
	if share.CreatedAt.IsZero() {
		share.CreatedAt = time.Now()
	}
	r.shares[share.ID] = cloneShare(share)
	r.byToken[share.Token] = share.ID
	return nil
}

// GetByID retrieves a share by ID
func (r *MemoryShareRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ShareToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	share, ok := r.shares[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return cloneShare(share), nil
}

// GetByToken retrieves a share by token string
func (r *MemoryShareRepository) GetByToken(ctx context.Context, token string) (*models.ShareToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byToken[token]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return cloneShare(r.shares[id]), nil
}

// ListByFile returns a file's shares, newest first
func (r *MemoryShareRepository) ListByFile(ctx context.Context, fileID uuid.UUID) ([]*models.ShareToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var shares []*models.ShareToken
	for _, share := range r.shares {
		if share.FileID == fileID {
			shares = append(shares, cloneShare(share))
		}
	}
	sort.Slice(shares, func(i, j int) bool {
		return shares[i].CreatedAt.After(shares[j].CreatedAt)
	})
	return shares, nil
}

// Deactivate flips a share's active flag off
func (r *MemoryShareRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	share, ok := r.shares[id]
	if !ok {
		return apperr.ErrNotFound
	}
	share.Active = false
	return nil
}

// ConsumeDownload takes one download slot atomically
func (r *MemoryShareRepository) ConsumeDownload(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	share, ok := r.shares[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if !share.Active {
		return apperr.ErrLimitReached
	}
	if share.MaxDownloads != nil && share.DownloadCount >= *share.MaxDownloads {
		return apperr.ErrLimitReached
	}
	share.DownloadCount++
	return nil
}

// DeactivateExpired flips active off for every expired token
func (r *MemoryShareRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, share := range r.shares {
		if share.Active && share.Expired(now) {
			share.Active = false
			count++
		}
	}
	return count, nil
}

// DeactivateByFile deactivates all of a file's shares
func (r *MemoryShareRepository) DeactivateByFile(ctx context.Context, fileID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, share := range r.shares {
		if share.FileID == fileID {
			share.Active = false
		}
	}
	return nil
}

// DeleteByFile removes all of a file's shares
func (r *MemoryShareRepository) DeleteByFile(ctx context.Context, fileID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, share := range r.shares {
		if share.FileID == fileID {
			delete(r.byToken, share.Token)
			delete(r.shares, id)
		}
	}
	return nil
}

// MemoryAccessLogRepository is an in-memory, append-only audit sink
type MemoryAccessLogRepository struct {
	mu      sync.Mutex
	nextID  int64
	entries []*models.AccessLogEntry
}

// NewMemoryAccessLogRepository creates an empty in-memory audit sink
func NewMemoryAccessLogRepository() *MemoryAccessLogRepository {
	return &MemoryAccessLogRepository{}
}

// Append inserts an audit entry
func (r *MemoryAccessLogRepository) Append(ctx context.Context, entry *models.AccessLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry.ID = r.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	stored := *entry
	r.entries = append(r.entries, &stored)
	return nil
}

// ListByFile returns a file's audit trail, newest first
func (r *MemoryAccessLogRepository) ListByFile(ctx context.Context, fileID uuid.UUID, limit, offset int) ([]*models.AccessLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*models.AccessLogEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].FileID == fileID {
			entry := *r.entries[i]
			matched = append(matched, &entry)
		}
	}
	if offset > 0 {
		if offset >= len(matched) {
			return nil, nil
		}
		matched = matched[offset:]
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// DeleteByFile removes a file's audit trail
func (r *MemoryAccessLogRepository) DeleteByFile(ctx context.Context, fileID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	for _, entry := range r.entries {
		if entry.FileID != fileID {
			kept = append(kept, entry)
		}
	}
	r.entries = kept
	return nil
}
