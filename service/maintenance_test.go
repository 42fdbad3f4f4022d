package service

import (
	"context"
	"testing"
	"time"

	"teamvault-backend/apperr"
	"teamvault-backend/config"
	"teamvault-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMaintenance(env *testEnv, retention time.Duration) *Maintenance {
	return NewMaintenance(
		env.files, env.shares, env.fileSvc, env.cache,
		retention, time.Minute, zap.NewNop(),
	)
}

func TestSweepDeactivatesExpiredShares(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	file := env.upload(t, owner, "doc.txt", []byte("doc"))

	future := time.Now().Add(time.Hour)
	share, err := env.shareSvc.CreateShare(ctx, file.ID, member(owner),
		ShareConstraints{ExpiresAt: &future}, ClientInfo{})
	require.NoError(t, err)

	m := newMaintenance(env, 30*24*time.Hour)
	m.now = func() time.Time { return future.Add(time.Minute) }
	m.RunOnce(ctx)

	stored, err := env.shares.GetByID(ctx, share.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
}

func TestSweepSoftDeletesExpiredRecords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	expiry := time.Now().Add(time.Hour)
	file, err := env.fileSvc.Upload(ctx, UploadRequest{
		Data:         []byte("temp"),
		Name:         "temp.txt",
		DeclaredMime: "text/plain",
		Category:     models.CategoryDocument,
		OwnerID:      owner,
		ExpiresAt:    &expiry,
	})
	require.NoError(t, err)

	m := newMaintenance(env, 30*24*time.Hour)
	m.now = func() time.Time { return expiry.Add(time.Minute) }
	m.RunOnce(ctx)

	stored, err := env.files.GetByID(ctx, file.ID)
	require.NoError(t, err)
	assert.True(t, stored.SoftDeleted)
	require.NotNil(t, stored.DeletedBy)
	assert.Equal(t, uuid.Nil, *stored.DeletedBy)
}

func TestSweepPurgesPastRetention(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	retention := 24 * time.Hour

	old := env.upload(t, owner, "old.txt", []byte("old"))
	recent := env.upload(t, owner, "recent.txt", []byte("recent"))

	now := time.Now()
	require.NoError(t, env.files.SoftDelete(ctx, old.ID, owner, now.Add(-retention-time.Hour)))
	require.NoError(t, env.files.SoftDelete(ctx, recent.ID, owner, now.Add(-time.Hour)))

	m := newMaintenance(env, retention)
	m.now = func() time.Time { return now }
	m.RunOnce(ctx)

	// Past retention: gone, bytes included
	_, err := env.files.GetByID(ctx, old.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = env.backend.Get(ctx, old.StorageKey)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// Within retention: still recoverable
	stored, err := env.files.GetByID(ctx, recent.ID)
	require.NoError(t, err)
	assert.True(t, stored.SoftDeleted)
}

func TestSweepLeavesLiveRecordsAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	file := env.upload(t, owner, "doc.txt", []byte("doc"))

	m := newMaintenance(env, 24*time.Hour)
	m.now = func() time.Time { return time.Now().Add(365 * 24 * time.Hour) }
	m.RunOnce(ctx)

	stored, err := env.files.GetByID(ctx, file.ID)
	require.NoError(t, err)
	assert.False(t, stored.SoftDeleted)
}

func TestSystemActorIsPrivileged(t *testing.T) {
	assert.True(t, systemActor.Privileged())
	assert.Equal(t, uuid.Nil, systemActor.ID)
}

func TestMaintenanceStartStopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	m := NewMaintenance(
		env.files, env.shares, env.fileSvc, env.cache,
		time.Hour, 10*time.Millisecond, zap.NewNop(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()
	// The loop exits without panicking once the context is done
	time.Sleep(20 * time.Millisecond)
}

func TestDefaultCategoriesValidate(t *testing.T) {
	assert.NoError(t, config.ValidateCategories(config.DefaultCategories()))
}
