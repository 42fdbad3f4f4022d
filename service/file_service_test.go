package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"teamvault-backend/apperr"
	"teamvault-backend/config"
	"teamvault-backend/models"
	"teamvault-backend/repository"
	"teamvault-backend/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEnv wires the full service stack over in-memory repositories and
// a local backend rooted in a test temp dir
type testEnv struct {
	files    *repository.MemoryFileRepository
	versions *repository.MemoryVersionRepository
	shares   *repository.MemoryShareRepository
	logs     *repository.MemoryAccessLogRepository
	backend  storage.Backend
	audit    *AccessLogger
	cache    *MetadataCache

	fileSvc    *FileService
	versionSvc *VersionService
	shareSvc   *ShareService
	bulkSvc    *BulkService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backend, err := storage.NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		files:    repository.NewMemoryFileRepository(),
		versions: repository.NewMemoryVersionRepository(),
		shares:   repository.NewMemoryShareRepository(),
		logs:     repository.NewMemoryAccessLogRepository(),
		backend:  backend,
		cache:    NewMetadataCache(time.Minute, 64),
	}
	env.audit = NewAccessLogger(env.logs, zap.NewNop())

	categories := config.DefaultCategories()
	env.fileSvc = NewFileService(
		env.files, env.versions, env.shares, env.logs,
		env.backend, env.audit, env.cache, categories, zap.NewNop(),
	)
	env.versionSvc = NewVersionService(
		env.files, env.versions, env.audit, env.cache, categories, zap.NewNop(),
	)
	env.shareSvc = NewShareService(
		env.files, env.shares, env.backend, env.audit, categories, zap.NewNop(),
	)
	env.bulkSvc = NewBulkService(
		env.fileSvc, env.files, env.versions, env.backend,
		env.audit, env.cache, categories, zap.NewNop(),
	)
	return env
}

func (e *testEnv) upload(t *testing.T, owner uuid.UUID, name string, content []byte) *models.File {
	t.Helper()
	file, err := e.fileSvc.Upload(context.Background(), UploadRequest{
		Data:         content,
		Name:         name,
		DeclaredMime: "text/plain",
		Category:     models.CategoryDocument,
		OwnerID:      owner,
	})
	require.NoError(t, err)
	return file
}

func admin() models.Principal {
	return models.Principal{ID: uuid.New(), Role: "admin"}
}

func member(id uuid.UUID) models.Principal {
	return models.Principal{ID: id, Role: "member"}
}

func TestUploadStoresVerifiableContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	content := []byte("quarterly numbers")
	file := env.upload(t, owner, "q3.txt", content)

	assert.Equal(t, storage.Checksum(content), file.Checksum)
	assert.Equal(t, int64(len(content)), file.Size)
	assert.Equal(t, 1.0, file.Version)
	assert.Equal(t, models.VisibilityPrivate, file.Visibility)

	// The stored bytes round-trip through the checksum gate
	got, data, err := env.fileSvc.Download(ctx, file.ID, member(owner), ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, content, data)
	assert.Equal(t, file.ID, got.ID)

	// An initial version entry exists
	history, err := env.versions.ListByFile(ctx, file.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.ChangeCreate, history[0].ChangeType)
	assert.Equal(t, 1.0, history[0].Version)
}

func TestUploadRejectionLeavesNoState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.fileSvc.Upload(ctx, UploadRequest{
		Data:         []byte("#!/bin/sh\necho pwned"),
		Name:         "script.txt",
		DeclaredMime: "text/plain",
		Category:     models.CategoryDocument,
		OwnerID:      uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	files, err := env.files.List(ctx, repository.FileFilter{})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestUploadUnknownCategory(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.fileSvc.Upload(context.Background(), UploadRequest{
		Data:         []byte("x"),
		Name:         "a.txt",
		DeclaredMime: "text/plain",
		Category:     models.FileCategory("scratch"),
		OwnerID:      uuid.New(),
	})
	assert.True(t, apperr.IsValidation(err))
}

func TestDownloadCountsAndAudits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	file := env.upload(t, owner, "notes.txt", []byte("notes"))

	for i := 0; i < 3; i++ {
		_, _, err := env.fileSvc.Download(ctx, file.ID, member(owner), ClientInfo{IP: "10.0.0.1"})
		require.NoError(t, err)
	}

	stored, err := env.files.GetByID(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored.DownloadCount)
	assert.NotNil(t, stored.LastAccessed)

	entries, err := env.audit.History(ctx, file.ID, 50, 0)
	require.NoError(t, err)

	downloads := 0
	for _, e := range entries {
		if e.Action == models.ActionDownload && e.Outcome == models.OutcomeSuccess {
			downloads++
		}
	}
	assert.Equal(t, 3, downloads)
}

func TestDownloadDetectsCorruption(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	file := env.upload(t, owner, "data.txt", []byte("original"))

	// Corrupt the stored object behind the registry's back
	require.NoError(t, env.backend.Put(ctx, file.StorageKey, strings.NewReader("tampered")))

	_, _, err := env.fileSvc.Download(ctx, file.ID, member(owner), ClientInfo{})
	require.Error(t, err)
	var ie *apperr.IntegrityError
	assert.ErrorAs(t, err, &ie)
	assert.Equal(t, file.ID, ie.FileID)
}

func TestPrivateFileAccessControl(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	stranger := member(uuid.New())
	file := env.upload(t, owner, "secret.txt", []byte("secret"))

	_, err := env.fileSvc.GetFile(ctx, file.ID, stranger)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, _, err = env.fileSvc.Download(ctx, file.ID, stranger, ClientInfo{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	// Admins read anything
	_, err = env.fileSvc.GetFile(ctx, file.ID, admin())
	assert.NoError(t, err)

	// Public files are readable by anyone
	vis := models.VisibilityPublic
	_, err = env.fileSvc.Update(ctx, file.ID, member(owner), UpdateRequest{Visibility: &vis})
	require.NoError(t, err)
	_, err = env.fileSvc.GetFile(ctx, file.ID, stranger)
	assert.NoError(t, err)
}

func TestUpdateValidatesFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	file := env.upload(t, owner, "doc.txt", []byte("doc"))

	bad := models.Visibility("everyone")
	_, err := env.fileSvc.Update(ctx, file.ID, member(owner), UpdateRequest{Visibility: &bad})
	assert.True(t, apperr.IsValidation(err))

	_, err = env.fileSvc.Update(ctx, file.ID, member(owner), UpdateRequest{Tags: []string{"bad tag!"}})
	assert.True(t, apperr.IsValidation(err))

	name := "renamed.txt"
	updated, err := env.fileSvc.Update(ctx, file.ID, member(owner), UpdateRequest{
		Name: &name,
		Tags: []string{"a", "b", "a"},
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed.txt", updated.OriginalName)
	assert.Equal(t, []string{"a", "b"}, updated.Tags)
}

func TestListScoping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	env.upload(t, alice, "a1.txt", []byte("a1"))
	env.upload(t, alice, "a2.txt", []byte("a2"))
	env.upload(t, bob, "b1.txt", []byte("b1"))

	// Non-privileged listings only see the caller's own files
	got, err := env.fileSvc.List(ctx, member(alice), ListRequest{})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = env.fileSvc.List(ctx, admin(), ListRequest{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSoftDeleteHidesAndDeactivatesShares(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	file := env.upload(t, owner, "doc.txt", []byte("doc"))

	share, err := env.shareSvc.CreateShare(ctx, file.ID, member(owner), ShareConstraints{}, ClientInfo{})
	require.NoError(t, err)

	require.NoError(t, env.fileSvc.SoftDelete(ctx, file.ID, member(owner), ClientInfo{}))

	// Hidden from the owner now
	_, err = env.fileSvc.GetFile(ctx, file.ID, member(owner))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// Still addressable for admins
	got, err := env.fileSvc.GetFile(ctx, file.ID, admin())
	require.NoError(t, err)
	assert.True(t, got.SoftDeleted)

	// The share died with the record
	stored, err := env.shares.GetByID(ctx, share.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
}

func TestPurgeRequiresPrivilegeAndRemovesEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	file := env.upload(t, owner, "doc.txt", []byte("doc"))

	// Owners cannot purge their own files
	err := env.fileSvc.Purge(ctx, file.ID, member(owner), ClientInfo{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, env.fileSvc.Purge(ctx, file.ID, admin(), ClientInfo{}))

	_, err = env.files.GetByID(ctx, file.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	history, err := env.versions.ListByFile(ctx, file.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	entries, err := env.logs.ListByFile(ctx, file.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = env.backend.Get(ctx, file.StorageKey)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAuditFailuresAreSwallowed(t *testing.T) {
	// The audit sink failing must not fail the operation it records
	env := newTestEnv(t)
	env.fileSvc.audit = NewAccessLogger(failingLogRepo{}, zap.NewNop())

	file := env.upload(t, uuid.New(), "doc.txt", []byte("doc"))
	assert.NotNil(t, file)
}

// failingLogRepo rejects every append
type failingLogRepo struct {
	repository.AccessLogRepository
}

func (failingLogRepo) Append(ctx context.Context, entry *models.AccessLogEntry) error {
	return assert.AnError
}
