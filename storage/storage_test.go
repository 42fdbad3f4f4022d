package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"teamvault-backend/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	// Known SHA-256 of the empty input
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Checksum(nil))

	a := Checksum([]byte("hello"))
	b := Checksum([]byte("hello"))
	c := Checksum([]byte("hello!"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestBuildKey(t *testing.T) {
	id := uuid.New()
	at := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)

	key := BuildKey("document", id, at, "Report FINAL.PDF")
	assert.Equal(t,
		fmt.Sprintf("document/2026/03/%s_%d.pdf", id, at.UnixNano()),
		key)

	// No extension on the original name means no extension on the key
	bare := BuildKey("archive", id, at, "README")
	assert.True(t, strings.HasSuffix(bare, fmt.Sprintf("%s_%d", id, at.UnixNano())))
}

func TestLocalBackendRoundTrip(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := "document/2026/03/test_1.txt"
	content := []byte("stored bytes")

	require.NoError(t, backend.Put(ctx, key, strings.NewReader(string(content))))

	reader, err := backend.Get(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, content, got)

	// Put overwrites
	require.NoError(t, backend.Put(ctx, key, strings.NewReader("replaced")))
	reader, err = backend.Get(ctx, key)
	require.NoError(t, err)
	got, err = io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, "replaced", string(got))

	require.NoError(t, backend.Delete(ctx, key))
	_, err = backend.Get(ctx, key)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestLocalBackendGetMissing(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	_, err = backend.Get(context.Background(), "no/such/key.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	var se *apperr.StorageError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "get", se.Op)
}

func TestLocalBackendDeleteMissingIsNoOp(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, backend.Delete(context.Background(), "absent.txt"))
}
