package blob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name     string
		ref      string
		expected string
		wantErr  bool
	}{
		{
			name:     "cdn url with version",
			ref:      "https://res.cloudinary.com/demo/image/upload/v1700000000/inspiranet/chat/photo.jpg",
			expected: "inspiranet/chat/photo",
		},
		{
			name:     "cdn url without version",
			ref:      "https://res.cloudinary.com/demo/video/upload/chat/clip.mp4",
			expected: "chat/clip",
		},
		{
			name:     "version-like folder deeper in path is kept",
			ref:      "https://cdn.example.com/upload/v12/v3/doc.pdf",
			expected: "v3/doc",
		},
		{
			name:     "plain url keeps the full path",
			ref:      "https://files.example.com/a/b/chat/report.final.pdf",
			expected: "a/b/chat/report.final",
		},
		{
			name:     "relative path",
			ref:      "chat/photo.png",
			expected: "chat/photo",
		},
		{
			name:     "nested relative path keeps every segment",
			ref:      "chat/c1/photo.jpg",
			expected: "chat/c1/photo",
		},
		{
			name:     "leading mount segment is stripped",
			ref:      "/uploads/chat/c1/clip.mp4",
			expected: "chat/c1/clip",
		},
		{
			name:     "mount name deeper in path is kept",
			ref:      "chat/uploads/photo.png",
			expected: "chat/uploads/photo",
		},
		{
			name:     "mount segment alone is the key",
			ref:      "uploads.png",
			expected: "uploads",
		},
		{
			name:     "single segment",
			ref:      "photo.png",
			expected: "photo",
		},
		{
			name:     "escaped characters",
			ref:      "https://cdn.example.com/upload/v1/chat/my%20photo.jpg",
			expected: "chat/my photo",
		},
		{name: "empty", ref: "   ", wantErr: true},
		{name: "nothing after upload", ref: "https://cdn.example.com/upload/v1", wantErr: true},
		{name: "no path", ref: "https://cdn.example.com", wantErr: true},
		{name: "extension only", ref: "chat/.jpg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DeriveKey(tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, key)
		})
	}
}
