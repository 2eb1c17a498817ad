package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateBlobKey checks that a derived blob key is a clean relative path
// without traversal components.
func ValidateBlobKey(key string) error {
	if key == "" {
		return fmt.Errorf("blob key cannot be empty")
	}
	if strings.ContainsRune(key, '\x00') {
		return fmt.Errorf("blob key contains NUL byte")
	}
	if filepath.IsAbs(key) || strings.HasPrefix(key, "/") {
		return fmt.Errorf("absolute paths not allowed: %s", key)
	}
	for _, part := range strings.Split(filepath.ToSlash(key), "/") {
		if part == ".." {
			return fmt.Errorf("path contains directory traversal: %s", key)
		}
	}
	return nil
}

// ValidateFilePath rejects empty paths and paths that climb out of their
// directory. Absolute paths are allowed.
func ValidateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("file path contains NUL byte")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("path contains directory traversal: %s", path)
		}
	}
	return nil
}

// ResolveWithinBase joins key onto baseDir and verifies the result stays
// inside baseDir.
func ResolveWithinBase(baseDir, key string) (string, error) {
	if err := ValidateBlobKey(key); err != nil {
		return "", err
	}

	cleanBase := filepath.Clean(baseDir)
	full := filepath.Join(cleanBase, key)

	rel, err := filepath.Rel(cleanBase, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes base directory: %s", key)
	}
	return full, nil
}
