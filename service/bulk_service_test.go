package service

import (
	"context"
	"fmt"
	"testing"

	"teamvault-backend/apperr"
	"teamvault-backend/models"
	"teamvault-backend/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkDeleteMixedBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	mine := env.upload(t, owner, "mine.txt", []byte("mine"))
	theirs := env.upload(t, uuid.New(), "theirs.txt", []byte("theirs"))
	ghost := uuid.New()

	result, err := env.bulkSvc.BulkDelete(ctx, member(owner),
		[]uuid.UUID{mine.ID, theirs.ID, ghost}, false, ClientInfo{})
	require.NoError(t, err)
	require.IsType(t, &models.BatchResult{}, result)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, []uuid.UUID{mine.ID}, result.Successful)
	require.Len(t, result.Failed, 2)

	reasons := map[uuid.UUID]string{}
	for _, f := range result.Failed {
		reasons[f.ID] = f.Reason
	}
	assert.Equal(t, "forbidden", reasons[theirs.ID])
	assert.Equal(t, "not found", reasons[ghost])

	// The failure of one item did not roll back its siblings
	stored, err := env.files.GetByID(ctx, mine.ID)
	require.NoError(t, err)
	assert.True(t, stored.SoftDeleted)

	stored, err = env.files.GetByID(ctx, theirs.ID)
	require.NoError(t, err)
	assert.False(t, stored.SoftDeleted)
}

func TestBulkDeletePermanentRequiresPrivilege(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	file := env.upload(t, owner, "doc.txt", []byte("doc"))

	// Rejected before any item is touched
	_, err := env.bulkSvc.BulkDelete(ctx, member(owner), []uuid.UUID{file.ID}, true, ClientInfo{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.files.GetByID(ctx, file.ID)
	assert.NoError(t, err)

	result, err := env.bulkSvc.BulkDelete(ctx, admin(), []uuid.UUID{file.ID}, true, ClientInfo{})
	require.NoError(t, err)
	assert.Len(t, result.Successful, 1)

	_, err = env.files.GetByID(ctx, file.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBulkBatchSizeLimits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.bulkSvc.BulkDelete(ctx, admin(), nil, false, ClientInfo{})
	assert.True(t, apperr.IsValidation(err))

	oversized := make([]uuid.UUID, models.MaxBatchSize+1)
	for i := range oversized {
		oversized[i] = uuid.New()
	}
	_, err = env.bulkSvc.BulkDelete(ctx, admin(), oversized, false, ClientInfo{})
	assert.True(t, apperr.IsValidation(err))
}

func TestBulkMove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	file := env.upload(t, owner, "doc.txt", []byte("doc"))
	originalKey := file.StorageKey

	_, err := env.bulkSvc.BulkMove(ctx, member(owner), []uuid.UUID{file.ID},
		models.FileCategory("scratch"), ClientInfo{})
	assert.True(t, apperr.IsValidation(err))

	result, err := env.bulkSvc.BulkMove(ctx, member(owner), []uuid.UUID{file.ID},
		models.CategoryReport, ClientInfo{})
	require.NoError(t, err)
	assert.Len(t, result.Successful, 1)

	stored, err := env.files.GetByID(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryReport, stored.Category)
	// Moving a record does not re-key its stored bytes
	assert.Equal(t, originalKey, stored.StorageKey)
}

func TestBulkCopy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	copier := uuid.New()

	content := []byte("copy me")
	original := env.upload(t, owner, "doc.txt", content)
	vis := models.VisibilityPublic
	_, err := env.fileSvc.Update(ctx, original.ID, member(owner), UpdateRequest{Visibility: &vis})
	require.NoError(t, err)

	result, err := env.bulkSvc.BulkCopy(ctx, member(copier), []uuid.UUID{original.ID}, ClientInfo{})
	require.NoError(t, err)
	require.Len(t, result.Successful, 1)

	files, err := env.files.List(ctx, repository.FileFilter{OwnerID: &copier})
	require.NoError(t, err)
	require.Len(t, files, 1)
	dup := files[0]

	assert.NotEqual(t, original.ID, dup.ID)
	assert.NotEqual(t, original.StorageKey, dup.StorageKey)
	assert.Equal(t, original.Checksum, dup.Checksum)
	assert.Equal(t, copier, dup.OwnerID)
	// Copies start over private at the initial version
	assert.Equal(t, models.VisibilityPrivate, dup.Visibility)
	assert.Equal(t, 1.0, dup.Version)

	// The duplicated bytes pass the checksum gate
	_, data, err := env.fileSvc.Download(ctx, dup.ID, member(copier), ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, content, data)

	history, err := env.versions.ListByFile(ctx, dup.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.ChangeCreate, history[0].ChangeType)
}

func TestBulkCopyPrivateFileForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	original := env.upload(t, uuid.New(), "secret.txt", []byte("secret"))

	result, err := env.bulkSvc.BulkCopy(ctx, member(uuid.New()), []uuid.UUID{original.ID}, ClientInfo{})
	require.NoError(t, err)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "forbidden", result.Failed[0].Reason)
}

func TestBulkTagModes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	actor := member(owner)

	file := env.upload(t, owner, "doc.txt", []byte("doc"))
	_, err := env.fileSvc.Update(ctx, file.ID, actor, UpdateRequest{Tags: []string{"a", "b"}})
	require.NoError(t, err)

	t.Run("add unions without duplicates", func(t *testing.T) {
		result, err := env.bulkSvc.BulkTag(ctx, actor, []uuid.UUID{file.ID},
			models.TagAdd, []string{"b", "c"}, ClientInfo{})
		require.NoError(t, err)
		assert.Len(t, result.Successful, 1)

		stored, err := env.files.GetByID(ctx, file.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, stored.Tags)
	})

	t.Run("remove takes the difference", func(t *testing.T) {
		_, err := env.bulkSvc.BulkTag(ctx, actor, []uuid.UUID{file.ID},
			models.TagRemove, []string{"b", "zz"}, ClientInfo{})
		require.NoError(t, err)

		stored, err := env.files.GetByID(ctx, file.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, stored.Tags)
	})

	t.Run("replace overwrites", func(t *testing.T) {
		_, err := env.bulkSvc.BulkTag(ctx, actor, []uuid.UUID{file.ID},
			models.TagReplace, []string{"x"}, ClientInfo{})
		require.NoError(t, err)

		stored, err := env.files.GetByID(ctx, file.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, stored.Tags)
	})

	t.Run("invalid mode", func(t *testing.T) {
		_, err := env.bulkSvc.BulkTag(ctx, actor, []uuid.UUID{file.ID},
			models.TagMode("toggle"), []string{"x"}, ClientInfo{})
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestBulkTagCapPerItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	actor := member(owner)

	nearCap := make([]string, models.MaxTagsPerFile-1)
	for i := range nearCap {
		nearCap[i] = fmt.Sprintf("tag-%02d", i)
	}
	full := env.upload(t, owner, "full.txt", []byte("full"))
	_, err := env.fileSvc.Update(ctx, full.ID, actor, UpdateRequest{Tags: nearCap})
	require.NoError(t, err)

	empty := env.upload(t, owner, "empty.txt", []byte("empty"))

	result, err := env.bulkSvc.BulkTag(ctx, actor, []uuid.UUID{full.ID, empty.ID},
		models.TagAdd, []string{"one", "two"}, ClientInfo{})
	require.NoError(t, err)

	// Only the record that would exceed the cap fails
	assert.Equal(t, []uuid.UUID{empty.ID}, result.Successful)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, full.ID, result.Failed[0].ID)
}
