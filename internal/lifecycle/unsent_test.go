package lifecycle

import (
	"testing"

	"inspiranet/internal/errors"
	"inspiranet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUnsentMessageDelete(t *testing.T) {
	f := newFixture(t)
	f.conversation("c1", "alice", "bob")
	f.message(models.Message{ID: "sending", ConversationID: "c1", SenderID: "alice", Status: models.MessageStatusSending})
	f.message(models.Message{ID: "failed", ConversationID: "c1", SenderID: "alice", Status: models.MessageStatusFailed,
		Type: models.MessageTypeImage, MediaRef: strPtr("chat/retry.jpg")})
	f.message(models.Message{ID: "sent", ConversationID: "c1", SenderID: "alice", Status: models.MessageStatusSent})
	f.message(models.Message{ID: "bobs", ConversationID: "c1", SenderID: "bob", Status: models.MessageStatusFailed})
	f.blobs.On("Delete", mock.Anything, "chat/retry").Return(nil).Once()

	res, err := f.mgr.UnsentMessageDelete(f.ctx, target("alice", "c1", "sending", "failed", "sent", "bobs"))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 2, res.DeletedCount)
	assert.Equal(t, 1, res.DeletedMediaCount)
	assert.ElementsMatch(t, []string{"sending", "failed"}, res.MessageIDs)
	f.blobs.AssertExpectations(t)

	assert.Nil(t, f.get("sending"))
	assert.Nil(t, f.get("failed"))
	assert.NotNil(t, f.get("sent"))
	assert.NotNil(t, f.get("bobs"))
}

func TestUnsentMessageDelete_NothingUnsent(t *testing.T) {
	f := newFixture(t)
	f.conversation("c1", "alice", "bob")
	f.message(models.Message{ID: "sent", ConversationID: "c1", SenderID: "alice", Status: models.MessageStatusDelivered})

	res, err := f.mgr.UnsentMessageDelete(f.ctx, target("alice", "c1", "sent"))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, errors.ErrCodeNotFound, res.Code)
	assert.NotNil(t, f.get("sent"))
}
