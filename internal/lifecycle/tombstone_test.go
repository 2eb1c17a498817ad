package lifecycle

import (
	"path/filepath"
	"testing"
	"time"

	"inspiranet/internal/blob"
	"inspiranet/internal/models"
	"inspiranet/pkg/circuitbreaker"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSoftDelete(t *testing.T) {
	f := newFixture(t)
	f.conversation("c1", "alice", "bob")
	f.message(models.Message{ID: "m1", ConversationID: "c1", SenderID: "bob"})

	for i := 0; i < 2; i++ {
		res, err := f.mgr.SoftDelete(f.ctx, target("alice", "c1", "m1"))
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.Equal(t, models.DeleteModeSoft, res.DeleteMode)
		assert.Equal(t, 1, res.DeletedCount)
	}

	msg := f.get("m1")
	require.NotNil(t, msg, "soft deleted messages stay in the store")
	assert.True(t, msg.IsDeleted)
	assert.Equal(t, 1, countEntries(msg, "alice", models.DeleteModeSoft))
	assert.True(t, f.now.Equal(msg.UpdatedAt))
}

func TestHardDelete_WithMedia(t *testing.T) {
	f := newFixture(t)
	f.conversation("c1", "alice", "bob")
	f.message(models.Message{ID: "m1", ConversationID: "c1", SenderID: "alice", Content: "first", CreatedAt: f.now.Add(-10 * time.Minute)})
	f.message(models.Message{
		ID:             "m2",
		ConversationID: "c1",
		SenderID:       "alice",
		Content:        "photo",
		Type:           models.MessageTypeImage,
		MediaRef:       strPtr("https://cdn.example.com/image/upload/v1700000000/chat/c1/photo.jpg"),
		DeletedBy:      []models.DeletionEntry{{UserID: "bob", Mode: models.DeleteModeForMe, DeletedAt: f.now}},
	})
	f.blobs.On("Delete", mock.Anything, "chat/c1/photo").Return(nil).Once()

	res, err := f.mgr.HardDelete(f.ctx, target("alice", "c1", "m2"), HardOptions{DeleteMedia: true})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, models.DeleteModeHard, res.DeleteMode)
	assert.Equal(t, 1, res.DeletedCount)
	assert.Equal(t, 1, res.DeletedMediaCount)
	assert.Empty(t, res.Warnings)
	f.blobs.AssertExpectations(t)
	f.blobs.AssertNumberOfCalls(t, "Delete", 1)

	assert.Nil(t, f.get("m2"))
	conv := f.conv("c1")
	require.NotNil(t, conv.LastMessageContent)
	assert.Equal(t, "first", *conv.LastMessageContent)
	require.NotNil(t, conv.LastMessageTime)
	assert.True(t, f.now.Add(-10*time.Minute).Equal(*conv.LastMessageTime))
}

func TestHardDelete_WithoutMedia(t *testing.T) {
	f := newFixture(t)
	f.conversation("c1", "alice", "bob")
	f.message(models.Message{ID: "m1", ConversationID: "c1", SenderID: "alice", Type: models.MessageTypeImage, MediaRef: strPtr("chat/photo.png")})

	res, err := f.mgr.HardDelete(f.ctx, target("alice", "c1", "m1"), HardOptions{})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 0, res.DeletedMediaCount)
	f.blobs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	assert.Nil(t, f.get("m1"))
	conv := f.conv("c1")
	assert.Nil(t, conv.LastMessageContent)
	assert.Nil(t, conv.LastMessageTime)
}

func TestHardDelete_BlobFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.conversation("c1", "alice", "bob")
	f.message(models.Message{ID: "m1", ConversationID: "c1", SenderID: "alice", Type: models.MessageTypeFile, MediaRef: strPtr("files/report.pdf")})
	f.blobs.On("Delete", mock.Anything, "files/report").Return(assert.AnError).Once()

	res, err := f.mgr.HardDelete(f.ctx, target("alice", "c1", "m1"), HardOptions{DeleteMedia: true})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 1, res.DeletedCount)
	assert.Equal(t, 0, res.DeletedMediaCount)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "m1")
	assert.Nil(t, f.get("m1"))
}

func TestHardDelete_OpenBreakerRejectsRemainingBlobs(t *testing.T) {
	f := newFixture(t)
	f.conversation("c1", "alice", "bob")
	f.message(models.Message{ID: "m1", ConversationID: "c1", SenderID: "alice", Type: models.MessageTypeImage, MediaRef: strPtr("chat/one.png")})
	f.message(models.Message{ID: "m2", ConversationID: "c1", SenderID: "alice", Type: models.MessageTypeImage, MediaRef: strPtr("chat/two.png")})
	f.blobs.On("Delete", mock.Anything, mock.Anything).Return(assert.AnError)

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	breaker := circuitbreaker.New(circuitbreaker.Settings{Name: "blob", MaxFailures: 1, Timeout: time.Hour, Logger: logger})
	mgr := NewManager(f.db, blob.NewGuardedStore(f.blobs, breaker),
		Config{Now: func() time.Time { return f.now }, FanoutLimit: 1},
		WithLogger(logger))

	res, err := mgr.HardDelete(f.ctx, target("alice", "c1", "m1", "m2"), HardOptions{DeleteMedia: true})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 2, res.DeletedCount)
	assert.Len(t, res.Warnings, 2)
	f.blobs.AssertNumberOfCalls(t, "Delete", 1)
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())
}

func TestHardDelete_FileStore(t *testing.T) {
	f := newFixture(t)
	store, err := blob.NewFileStore(filepath.Join(t.TempDir(), "media"))
	require.NoError(t, err)
	mgr := NewManager(f.db, store, Config{Now: func() time.Time { return f.now }})

	path := filepath.Join(store.Root(), "chat", "clip.mp4")
	writeFile(t, path)

	f.conversation("c1", "alice", "bob")
	f.message(models.Message{ID: "m1", ConversationID: "c1", SenderID: "alice", Type: models.MessageTypeVideo, MediaRef: strPtr("/uploads/chat/clip.mp4")})

	res, err := mgr.HardDelete(f.ctx, target("alice", "c1", "m1"), HardOptions{DeleteMedia: true})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 1, res.DeletedMediaCount)
	assert.NoFileExists(t, path)
}

func TestHardDelete_FileStoreNestedRef(t *testing.T) {
	f := newFixture(t)
	store, err := blob.NewFileStore(filepath.Join(t.TempDir(), "media"))
	require.NoError(t, err)
	mgr := NewManager(f.db, store, Config{Now: func() time.Time { return f.now }})

	path := filepath.Join(store.Root(), "chat", "c1", "photo.jpg")
	writeFile(t, path)
	thumb := filepath.Join(store.Root(), "chat", "c1", "photo.thumb.jpg")
	writeFile(t, thumb)

	f.conversation("c1", "alice", "bob")
	f.message(models.Message{ID: "m1", ConversationID: "c1", SenderID: "alice", Type: models.MessageTypeImage, MediaRef: strPtr("chat/c1/photo.jpg")})

	res, err := mgr.HardDelete(f.ctx, target("alice", "c1", "m1"), HardOptions{DeleteMedia: true})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 1, res.DeletedMediaCount)
	assert.Empty(t, res.Warnings)
	assert.NoFileExists(t, path)
	assert.FileExists(t, thumb)
}

func TestHardDelete_MissingBlobWarns(t *testing.T) {
	f := newFixture(t)
	store, err := blob.NewFileStore(filepath.Join(t.TempDir(), "media"))
	require.NoError(t, err)
	mgr := NewManager(f.db, store, Config{Now: func() time.Time { return f.now }})

	f.conversation("c1", "alice", "bob")
	f.message(models.Message{ID: "m1", ConversationID: "c1", SenderID: "alice", Type: models.MessageTypeImage, MediaRef: strPtr("chat/c1/gone.jpg")})

	res, err := mgr.HardDelete(f.ctx, target("alice", "c1", "m1"), HardOptions{DeleteMedia: true})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 1, res.DeletedCount)
	assert.Equal(t, 0, res.DeletedMediaCount)
	assert.Equal(t, []string{"media for message m1 was not found in the blob store"}, res.Warnings)
	assert.Nil(t, f.get("m1"))
}
