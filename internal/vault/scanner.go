// Package vault loads the note corpus from a local directory tree.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/tsunagu/internal/models"
)

// DefaultExtensions are the note file extensions scanned when none are configured.
var DefaultExtensions = []string{".md", ".markdown"}

// Scan walks root and returns every note file as a (path, content) pair.
// Paths are vault-relative with forward slashes. Hidden directories (dot
// prefix) are skipped, which also keeps the cache root out of the corpus.
// Traversal uses an explicit worklist so vault depth never grows the stack.
func Scan(root string, extensions []string) ([]models.Note, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat vault root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root is not a directory: %s", root)
	}

	var notes []models.Note
	worklist := []string{root}
	for len(worklist) > 0 {
		dir := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read vault dir %s: %w", dir, err)
		}
		for _, entry := range entries {
			name := entry.Name()
			full := filepath.Join(dir, name)
			if entry.IsDir() {
				if strings.HasPrefix(name, ".") {
					continue
				}
				worklist = append(worklist, full)
				continue
			}
			if !matchExtension(name, extensions) {
				continue
			}
			data, err := os.ReadFile(full)
			if err != nil {
				return nil, fmt.Errorf("read note %s: %w", full, err)
			}
			rel, err := filepath.Rel(root, full)
			if err != nil {
				return nil, fmt.Errorf("relativize %s: %w", full, err)
			}
			notes = append(notes, models.Note{
				Path:    filepath.ToSlash(rel),
				Content: string(data),
			})
		}
	}

	sort.Slice(notes, func(i, j int) bool { return notes[i].Path < notes[j].Path })
	return notes, nil
}

func matchExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
