package engine

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/genbak/genbak/internal/walk"
)

// Record is the metadata kept for one file of the prior generation: enough
// to decide changed-vs-unchanged without touching content.
type Record struct {
	Size    int64
	ModTime time.Time
}

// Journal maps relative paths (relative to a generation's root directory) to
// the metadata captured when that generation was scanned. Read-only once
// built.
type Journal map[string]Record

// journalVisitor populates a Journal while walking a prior generation.
// Directories are ignored: structure is rebuilt from the current source
// tree, not the prior snapshot.
type journalVisitor struct {
	root    string
	journal Journal
}

func (j *journalVisitor) OnFile(path string, info fs.FileInfo) error {
	rel, err := filepath.Rel(j.root, path)
	if err != nil {
		return fmt.Errorf("prior snapshot path %s outside root %s: %w", path, j.root, err)
	}
	j.journal[rel] = Record{Size: info.Size(), ModTime: info.ModTime()}
	return nil
}

func (j *journalVisitor) OnDir(string, fs.FileInfo) error { return nil }

// ScanPrior walks the prior generation rooted at root and returns its
// Journal. The exclusion set matches the one used for source traversal, so
// names excluded from the backup never force needless copies.
func ScanPrior(root string, excl walk.Exclusions) (Journal, error) {
	v := &journalVisitor{root: root, journal: make(Journal)}
	if err := walk.Walk(root, excl, v); err != nil {
		return nil, fmt.Errorf("scan prior generation: %w", err)
	}
	return v.journal, nil
}
