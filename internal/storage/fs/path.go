package fs

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

var ErrUnsafePath = errors.New("unsafe path")

// NormalizeRelPath cleans a slash-separated relative path and rejects
// anything that would escape its root.
func NormalizeRelPath(p string) (string, error) {
	if strings.ContainsRune(p, 0) {
		return "", ErrUnsafePath
	}
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(p, "/") {
		return "", ErrUnsafePath
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrUnsafePath
	}
	return clean, nil
}

// ValidSlug reports whether slug can name a single output file.
func ValidSlug(slug string) bool {
	if strings.TrimSpace(slug) == "" || slug == "." || slug == ".." {
		return false
	}
	return !strings.ContainsAny(slug, "/\\\x00")
}

// JoinUnder joins rel onto root and fails if the result leaves root.
func JoinUnder(root, rel string) (string, error) {
	clean, err := NormalizeRelPath(rel)
	if err != nil {
		return "", err
	}
	full := filepath.Join(root, filepath.FromSlash(clean))
	back, err := filepath.Rel(root, full)
	if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", ErrUnsafePath
	}
	return full, nil
}
