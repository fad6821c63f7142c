package engine

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/genbak/genbak/internal/event"
)

// backupVisitor implements the link-or-copy decision against a prior
// generation. For every file the walker presents it either hardlinks the
// destination entry to the prior generation's copy (unchanged content) or
// copies the source bytes (new or changed content). Directories are
// materialized as they are visited, before anything beneath them.
type backupVisitor struct {
	fc *fileCopier

	journal   Journal
	srcRoot   string // current source directory being walked
	dstRoot   string // this source's directory under the working snapshot
	priorDir  string // this source's directory under the prior generation
	keyPrefix string // this source's leaf name, prepended to journal keys
	minDiff   int64  // seconds
}

func (b *backupVisitor) OnDir(path string, info fs.FileInfo) error {
	rel, err := b.rel(path)
	if err != nil {
		return err
	}
	return b.fc.makeDir(filepath.Join(b.dstRoot, rel), rel, info)
}

func (b *backupVisitor) OnFile(path string, info fs.FileInfo) error {
	rel, err := b.rel(path)
	if err != nil {
		return err
	}

	dst := filepath.Join(b.dstRoot, rel)
	priorPath := filepath.Join(b.priorDir, rel)

	prior := b.lookup(rel)
	act, why := decide(info, prior, b.minDiff)

	if why == reasonTimestampSuspect {
		b.fc.emit(event.Event{Type: event.TimestampSuspect, Path: rel, Size: info.Size()})
	}

	if act == actionLink {
		return b.fc.linkFile(priorPath, dst, rel, info.Size())
	}
	return b.fc.copyFile(path, dst, rel, info)
}

// OnSkip surfaces entries the walker pruned. Skips are informational, so a
// path that cannot be relativized is reported as-is rather than failing.
func (b *backupVisitor) OnSkip(path string) {
	rel, err := b.rel(path)
	if err != nil {
		rel = path
	}
	b.fc.skip(rel)
}

// rel strips the source root. The walker only ever produces paths under the
// root, so failure here is an internal invariant violation, not a user
// error.
func (b *backupVisitor) rel(path string) (string, error) {
	rel, err := filepath.Rel(b.srcRoot, path)
	if err != nil {
		return "", fmt.Errorf("internal: path %s escaped source root %s: %w", path, b.srcRoot, err)
	}
	return rel, nil
}

// lookup finds the prior record for a source-relative path. Journal keys are
// relative to the prior generation's root, so the source's leaf-name prefix
// is applied first.
func (b *backupVisitor) lookup(rel string) *Record {
	rec, ok := b.journal[filepath.Join(b.keyPrefix, rel)]
	if !ok {
		return nil
	}
	return &rec
}
