package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"inspiranet/pkg/circuitbreaker"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func writeBlob(t *testing.T, root, name string) string {
	t.Helper()
	p := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0750))
	require.NoError(t, os.WriteFile(p, []byte("data"), 0600))
	return p
}

func TestFileStore_Delete(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root)
	require.NoError(t, err)

	photo := writeBlob(t, root, "chat/photo.jpg")
	bare := writeBlob(t, root, "chat/photo")
	thumb := writeBlob(t, root, "chat/photo.thumb.jpg")
	sibling := writeBlob(t, root, "chat/photograph.jpg")

	require.NoError(t, store.Delete(context.Background(), "chat/photo"))

	assert.NoFileExists(t, photo)
	assert.NoFileExists(t, bare)
	assert.FileExists(t, thumb)
	assert.FileExists(t, sibling)

	require.NoError(t, store.Delete(context.Background(), "chat/photo.thumb"))
	assert.NoFileExists(t, thumb)
}

func TestFileStore_DeleteNestedKey(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root)
	require.NoError(t, err)

	photo := writeBlob(t, root, "chat/c1/photo.jpg")

	key, err := DeriveKey("chat/c1/photo.jpg")
	require.NoError(t, err)
	require.NoError(t, store.Delete(context.Background(), key))
	assert.NoFileExists(t, photo)
}

func TestFileStore_DeleteMissing(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root)
	require.NoError(t, err)

	writeBlob(t, root, "chat/other.jpg")

	assert.ErrorIs(t, store.Delete(context.Background(), "chat/none"), ErrNotFound)
	assert.ErrorIs(t, store.Delete(context.Background(), "no-such-dir/none"), ErrNotFound)
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	outer := t.TempDir()
	root := filepath.Join(outer, "blobs")
	store, err := NewFileStore(root)
	require.NoError(t, err)

	victim := writeBlob(t, outer, "secret.txt")

	err = store.Delete(context.Background(), "../secret")
	assert.ErrorContains(t, err, "invalid blob key")
	assert.FileExists(t, victim)
}

func TestFileStore_CancelledContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Delete(ctx, "chat/photo"), context.Canceled)
}

type mockDeleter struct {
	mock.Mock
}

func (m *mockDeleter) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func TestGuardedStore_OpensAfterFailures(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	next := new(mockDeleter)
	next.On("Delete", mock.Anything, "chat/photo").Return(errors.New("store unavailable"))

	guarded := NewGuardedStore(next, circuitbreaker.New(circuitbreaker.Settings{
		Name:        "blob-store",
		MaxFailures: 2,
		Timeout:     time.Minute,
		Logger:      logger,
	}))
	ctx := context.Background()

	assert.EqualError(t, guarded.Delete(ctx, "chat/photo"), "store unavailable")
	assert.EqualError(t, guarded.Delete(ctx, "chat/photo"), "store unavailable")

	err := guarded.Delete(ctx, "chat/photo")
	assert.True(t, circuitbreaker.IsOpenError(err))
	next.AssertNumberOfCalls(t, "Delete", 2)
}

func TestGuardedStore_MissingBlobKeepsBreakerClosed(t *testing.T) {
	next := new(mockDeleter)
	next.On("Delete", mock.Anything, "chat/gone").Return(ErrNotFound)

	breaker := circuitbreaker.New(circuitbreaker.Settings{Name: "blob-store", MaxFailures: 1, Timeout: time.Minute})
	guarded := NewGuardedStore(next, breaker)
	ctx := context.Background()

	assert.ErrorIs(t, guarded.Delete(ctx, "chat/gone"), ErrNotFound)
	assert.ErrorIs(t, guarded.Delete(ctx, "chat/gone"), ErrNotFound)
	assert.Equal(t, circuitbreaker.StateClosed, breaker.State())
	next.AssertNumberOfCalls(t, "Delete", 2)
}

func TestGuardedStore_PassesThrough(t *testing.T) {
	next := new(mockDeleter)
	next.On("Delete", mock.Anything, "chat/clip").Return(nil).Once()

	guarded := NewGuardedStore(next, circuitbreaker.New(circuitbreaker.Settings{Name: "blob-store"}))

	require.NoError(t, guarded.Delete(context.Background(), "chat/clip"))
	next.AssertExpectations(t)
}
