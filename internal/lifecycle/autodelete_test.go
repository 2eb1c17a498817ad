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

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want Duration
		str  string
	}{
		{"7d", PresetDuration("7d"), "7d"},
		{" 24h ", PresetDuration("24h"), "24h"},
		{"12", HoursDuration(12), "12h"},
		{"-1", HoursDuration(-1), "-1h"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d := ParseDuration(tt.in)
			assert.Equal(t, tt.want, d)
			assert.Equal(t, tt.str, d.String())
		})
	}
}

func TestSetAutoDelete(t *testing.T) {
	tests := []struct {
		name      string
		duration  Duration
		wantHours int
	}{
		{"24h preset", PresetDuration("24h"), 24},
		{"7d preset", PresetDuration("7d"), 168},
		{"90d preset", PresetDuration("90d"), 2160},
		{"explicit hours", HoursDuration(5), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.conversation("c1", "alice", "bob")
			f.message(models.Message{ID: "m1", ConversationID: "c1", SenderID: "alice"})

			res, err := f.mgr.SetAutoDelete(f.ctx, target("alice", "c1", "m1"), tt.duration)
			require.NoError(t, err)
			require.True(t, res.Success)
			assert.Equal(t, 1, res.SetCount)

			wantExpiry := f.now.Add(time.Duration(tt.wantHours) * time.Hour)
			require.Len(t, res.Messages, 1)
			assert.Equal(t, AutoDeleteItem{MessageID: "m1", ExpiresAt: wantExpiry, DurationHours: tt.wantHours}, res.Messages[0])

			msg := f.get("m1")
			assert.True(t, msg.AutoDelete.Enabled)
			assert.Equal(t, tt.wantHours, msg.AutoDelete.DurationHours)
			require.NotNil(t, msg.AutoDelete.ExpiresAt)
			assert.True(t, wantExpiry.Equal(*msg.AutoDelete.ExpiresAt))
		})
	}
}

func TestSetAutoDelete_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		target   Target
		duration Duration
		wantCode errors.ErrorCode
	}{
		{"unknown preset", target("alice", "c1", "m1"), PresetDuration("2w"), errors.ErrCodeInvalidInput},
		{"zero hours", target("alice", "c1", "m1"), HoursDuration(0), errors.ErrCodeInvalidInput},
		{"preset and hours", target("alice", "c1", "m1"), Duration{Preset: "7d", Hours: 3}, errors.ErrCodeInvalidInput},
		{"not the sender", target("alice", "c1", "m1", "m2"), PresetDuration("24h"), errors.ErrCodePermissionDenied},
		{"no messages", target("alice", "c1", "missing"), PresetDuration("24h"), errors.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.conversation("c1", "alice", "bob")
			f.message(models.Message{ID: "m1", ConversationID: "c1", SenderID: "alice"})
			f.message(models.Message{ID: "m2", ConversationID: "c1", SenderID: "bob"})

			res, err := f.mgr.SetAutoDelete(f.ctx, tt.target, tt.duration)
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.wantCode, res.Code)
			assert.False(t, f.get("m1").AutoDelete.Enabled)
			assert.False(t, f.get("m2").AutoDelete.Enabled)
		})
	}
}

func TestProcessAutoDelete(t *testing.T) {
	f := newFixture(t)
	expired := f.now.Add(-time.Minute)
	later := f.now.Add(time.Hour)
	autoDelete := func(at time.Time) models.AutoDelete {
		return models.AutoDelete{Enabled: true, ExpiresAt: &at, DurationHours: 24}
	}

	f.conversation("c1", "alice", "bob")
	f.conversation("c2", "alice", "carol")
	f.message(models.Message{ID: "keep", ConversationID: "c1", SenderID: "alice", Content: "keep", CreatedAt: f.now.Add(-30 * time.Minute)})
	f.message(models.Message{ID: "future", ConversationID: "c1", SenderID: "alice", Content: "future", CreatedAt: f.now.Add(-20 * time.Minute), AutoDelete: autoDelete(later)})
	f.message(models.Message{ID: "e1", ConversationID: "c1", SenderID: "alice", Content: "gone", AutoDelete: autoDelete(expired)})
	f.message(models.Message{ID: "e2", ConversationID: "c2", SenderID: "alice", CreatedAt: f.now.Add(-3 * time.Minute), AutoDelete: autoDelete(expired)})
	f.message(models.Message{ID: "e3", ConversationID: "c2", SenderID: "carol", Type: models.MessageTypeImage,
		MediaRef: strPtr("chat/c2/cat.gif"), AutoDelete: autoDelete(f.now)})

	for _, id := range []string{"c1", "c2"} {
		at := f.now.Add(-time.Minute)
		require.NoError(t, f.db.UpdateConversationLastMessage(f.ctx, id, strPtr("stale"), &at, f.now))
	}
	f.blobs.On("Delete", mock.Anything, "chat/c2/cat").Return(nil).Once()

	res, err := f.mgr.ProcessAutoDelete(f.ctx)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 3, res.DeletedCount)
	assert.ElementsMatch(t, []string{"e1", "e2", "e3"}, res.MessageIDs)
	f.blobs.AssertExpectations(t)

	assert.NotNil(t, f.get("keep"))
	assert.NotNil(t, f.get("future"))

	c1 := f.conv("c1")
	require.NotNil(t, c1.LastMessageContent)
	assert.Equal(t, "future", *c1.LastMessageContent)

	c2 := f.conv("c2")
	assert.Nil(t, c2.LastMessageContent)
	assert.Nil(t, c2.LastMessageTime)

	assert.Equal(t, map[string]int{"c1": 1, "c2": 1}, f.store.updates)

	again, err := f.mgr.ProcessAutoDelete(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.DeletedCount)
}
