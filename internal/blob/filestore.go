package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"inspiranet/internal/constants"
	"inspiranet/internal/security"
)

// ErrNotFound is returned when no file is stored under a key.
var ErrNotFound = errors.New("blob not found")

// FileStore keeps media blobs under a root directory. A blob with key
// "chat/abc" is stored as root/chat/abc with at most one file extension.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("blob root directory is required")
	}
	if err := os.MkdirAll(root, constants.DefaultDirectoryPermissions); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Root() string {
	return s.root
}

// Delete removes the files stored under key. It returns ErrNotFound when
// there are none.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := security.ResolveWithinBase(s.root, key)
	if err != nil {
		return fmt.Errorf("invalid blob key: %w", err)
	}

	dir, base := filepath.Split(full)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read blob directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (name != base && strings.TrimSuffix(name, filepath.Ext(name)) != base) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to remove blob %s: %w", name, err)
		}
		removed++
	}

	if removed == 0 {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return nil
}
