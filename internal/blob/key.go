package blob

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var versionSegment = regexp.MustCompile(`^v\d+$`)

// mountSegments are leading path segments that name the media mount rather
// than part of the key.
var mountSegments = []string{"uploads", "media"}

// DeriveKey maps a stored media reference to its blob key. For CDN-style
// references the key is every path segment after "upload", minus a leading
// version segment such as "v1700000000". Otherwise the key is the whole
// path with a leading mount segment such as "uploads" removed. The file
// extension is dropped in both cases.
func DeriveKey(mediaRef string) (string, error) {
	ref := strings.TrimSpace(mediaRef)
	if ref == "" {
		return "", fmt.Errorf("empty media reference")
	}

	p := ref
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		p = u.Path
	}

	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("media reference has no path: %s", mediaRef)
	}

	var keyParts []string
	if idx := indexOf(segments, "upload"); idx >= 0 {
		keyParts = segments[idx+1:]
		if len(keyParts) > 0 && versionSegment.MatchString(keyParts[0]) {
			keyParts = keyParts[1:]
		}
	} else {
		keyParts = segments
		if len(keyParts) > 1 && indexOf(mountSegments, keyParts[0]) >= 0 {
			keyParts = keyParts[1:]
		}
	}
	if len(keyParts) == 0 {
		return "", fmt.Errorf("media reference has no key after upload segment: %s", mediaRef)
	}

	last := len(keyParts) - 1
	keyParts = append([]string(nil), keyParts...)
	keyParts[last] = strings.TrimSuffix(keyParts[last], path.Ext(keyParts[last]))
	if keyParts[last] == "" {
		return "", fmt.Errorf("media reference has empty file name: %s", mediaRef)
	}

	return strings.Join(keyParts, "/"), nil
}

func indexOf(items []string, target string) int {
	for i, s := range items {
		if s == target {
			return i
		}
	}
	return -1
}
