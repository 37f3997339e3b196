// Package cover resolves a book file's cover image path by filesystem
// convention only — it never opens or parses image contents.
package cover

import (
	"os"
	"path/filepath"
	"strings"
)

// imageExtensions are the extensions considered a cover image candidate.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// Resolve returns the cover image path for the book at filePath, or "" if
// none is found. Resolution order:
//  1. A sibling file with the same stem and an image extension.
//  2. A file named "cover.<ext>" in the same directory.
//  3. A file named after the parent directory (the series/book folder)
//     with an image extension.
//
// Only the first hit is returned.
func Resolve(filePath string) string {
	dir := filepath.Dir(filePath)
	stem := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))

	if p := findWithStem(dir, stem); p != "" {
		return p
	}
	if p := findWithStem(dir, "cover"); p != "" {
		return p
	}
	parentName := filepath.Base(dir)
	if p := findWithStem(dir, parentName); p != "" {
		return p
	}
	return ""
}

func findWithStem(dir, stem string) string {
	for _, ext := range imageExtensions {
		candidate := filepath.Join(dir, stem+ext)
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
