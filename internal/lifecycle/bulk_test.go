package lifecycle

import (
	"testing"
	"time"

	"inspiranet/internal/errors"
	"inspiranet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParseBulkMode(t *testing.T) {
	opts := BulkOptions{TimeWindow: time.Hour, SkipTimeWindow: true, DeleteMedia: true}

	tests := []struct {
		name string
		want BulkMode
	}{
		{"forMe", BulkForMe{}},
		{"forEveryone", BulkForEveryone{TimeWindow: time.Hour, SkipTimeWindow: true}},
		{"hard", BulkHard{DeleteMedia: true}},
		{"soft", BulkSoft{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := ParseBulkMode(tt.name, opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, mode)
			assert.Equal(t, tt.name, mode.String())
		})
	}

	_, err := ParseBulkMode("purge", opts)
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidInput, appErr.Code)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	f, err = ParseFilter("media")
	require.NoError(t, err)
	assert.Equal(t, FilterMedia, f)

	_, err = ParseFilter("audio")
	assert.Error(t, err)
}

func seedBulk(f *fixture) {
	f.conversation("c1", "alice", "bob")
	f.message(models.Message{ID: "text", ConversationID: "c1", SenderID: "alice", Content: "hello", CreatedAt: f.now.Add(-3 * time.Minute)})
	f.message(models.Message{ID: "voice", ConversationID: "c1", SenderID: "alice", Type: models.MessageTypeAudio, MediaRef: strPtr("chat/voice.ogg")})
	f.message(models.Message{ID: "pic", ConversationID: "c1", SenderID: "alice", Type: models.MessageTypeImage, MediaRef: strPtr("chat/pic.png")})
}

func TestBulkDelete_MediaFilter(t *testing.T) {
	f := newFixture(t)
	seedBulk(f)
	f.blobs.On("Delete", mock.Anything, "chat/pic").Return(nil).Once()

	res, err := f.mgr.BulkDelete(f.ctx, target("alice", "c1", "text", "voice", "pic"), BulkHard{DeleteMedia: true}, FilterMedia)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.True(t, res.BulkDelete)
	assert.Equal(t, FilterMedia, res.Filter)
	assert.Equal(t, models.DeleteModeHard, res.DeleteMode)
	assert.Equal(t, []string{"pic"}, res.MessageIDs)
	assert.Equal(t, 1, res.DeletedMediaCount)
	f.blobs.AssertExpectations(t)

	assert.Nil(t, f.get("pic"))
	assert.NotNil(t, f.get("text"))
	assert.NotNil(t, f.get("voice"), "audio is not part of the media filter")
}

func TestBulkDelete_Modes(t *testing.T) {
	tests := []struct {
		name  string
		mode  BulkMode
		check func(t *testing.T, f *fixture, res *BulkResult)
	}{
		{"forMe", BulkForMe{}, func(t *testing.T, f *fixture, res *BulkResult) {
			assert.Equal(t, models.DeleteModeForMe, res.DeleteMode)
			assert.True(t, f.get("text").HasDeletion("alice", models.DeleteModeForMe))
		}},
		{"forEveryone", BulkForEveryone{}, func(t *testing.T, f *fixture, res *BulkResult) {
			assert.Equal(t, models.DeleteModeForEveryone, res.DeleteMode)
			assert.True(t, f.get("text").Deletion.DeletedForEveryone)
		}},
		{"soft", BulkSoft{}, func(t *testing.T, f *fixture, res *BulkResult) {
			assert.Equal(t, models.DeleteModeSoft, res.DeleteMode)
			assert.True(t, f.get("text").IsDeleted)
		}},
		{"hard", BulkHard{}, func(t *testing.T, f *fixture, res *BulkResult) {
			assert.Equal(t, models.DeleteModeHard, res.DeleteMode)
			assert.Nil(t, f.get("text"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			seedBulk(f)

			res, err := f.mgr.BulkDelete(f.ctx, target("alice", "c1", "text", "voice", "pic"), tt.mode, "")
			require.NoError(t, err)
			require.True(t, res.Success)
			assert.True(t, res.BulkDelete)
			assert.Equal(t, FilterAll, res.Filter)
			assert.Equal(t, 3, res.DeletedCount)
			tt.check(t, f, res)
		})
	}
}

func TestBulkDelete_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		target   Target
		mode     BulkMode
		filter   Filter
		wantCode errors.ErrorCode
	}{
		{"missing mode", target("alice", "c1", "text"), nil, FilterAll, errors.ErrCodeInvalidInput},
		{"unknown filter", target("alice", "c1", "text"), BulkForMe{}, Filter("audio"), errors.ErrCodeInvalidInput},
		{"no media", target("alice", "c1", "text", "voice"), BulkSoft{}, FilterMedia, errors.ErrCodeNotFound},
		{"not the sender", target("bob", "c1", "text"), BulkForEveryone{}, FilterAll, errors.ErrCodePermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			seedBulk(f)

			res, err := f.mgr.BulkDelete(f.ctx, tt.target, tt.mode, tt.filter)
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.wantCode, res.Code)
			assert.True(t, res.BulkDelete)
			assert.Empty(t, f.get("text").DeletedBy)
		})
	}
}
