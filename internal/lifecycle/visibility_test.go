package lifecycle

import (
	"testing"

	"inspiranet/internal/errors"
	"inspiranet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteForMe(t *testing.T) {
	f := newFixture(t)
	f.conversation("c1", "alice", "bob")
	f.conversation("c2", "alice", "bob")
	f.message(models.Message{ID: "m1", ConversationID: "c1", SenderID: "bob", Content: "hi"})
	f.message(models.Message{ID: "m2", ConversationID: "c2", SenderID: "bob", Content: "elsewhere"})

	res, err := f.mgr.DeleteForMe(f.ctx, target("alice", "c1", "m1", "m2"))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 1, res.DeletedCount)
	assert.Equal(t, []string{"m1"}, res.MessageIDs)
	assert.Equal(t, models.DeleteModeForMe, res.DeleteMode)

	msg := f.get("m1")
	assert.Equal(t, 1, countEntries(msg, "alice", models.DeleteModeForMe))
	assert.False(t, msg.HasAnyDeletion("bob"))
	assert.False(t, msg.Deletion.DeletedForEveryone)
	assert.Empty(t, f.get("m2").DeletedBy, "messages from another conversation are untouched")
}

func TestDeleteForMe_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.conversation("c1", "alice", "bob")
	f.message(models.Message{ID: "m1", ConversationID: "c1", SenderID: "bob"})

	for i := 0; i < 2; i++ {
		res, err := f.mgr.DeleteForMe(f.ctx, target("alice", "c1", "m1", "m1"))
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.Equal(t, 1, res.DeletedCount)
	}

	msg := f.get("m1")
	require.Len(t, msg.DeletedBy, 1)
	assert.Equal(t, 1, countEntries(msg, "alice", models.DeleteModeForMe))
}

func TestDeleteForMe_NotFound(t *testing.T) {
	f := newFixture(t)
	f.conversation("c1", "alice", "bob")

	res, err := f.mgr.DeleteForMe(f.ctx, target("alice", "c1", "missing"))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, errors.ErrCodeNotFound, res.Code)
	assert.NotEmpty(t, res.Error)
}
