package engine

import (
	"fmt"
	"io/fs"
	"path/filepath"
)

// copyVisitor is the first-generation visitor: with no prior snapshot to
// compare against, every directory is created and every file copied
// unconditionally, skipping the always-miss journal lookup.
type copyVisitor struct {
	fc      *fileCopier
	srcRoot string
	dstRoot string
}

func (c *copyVisitor) OnDir(path string, info fs.FileInfo) error {
	rel, err := c.rel(path)
	if err != nil {
		return err
	}
	return c.fc.makeDir(filepath.Join(c.dstRoot, rel), rel, info)
}

func (c *copyVisitor) OnFile(path string, info fs.FileInfo) error {
	rel, err := c.rel(path)
	if err != nil {
		return err
	}
	return c.fc.copyFile(path, filepath.Join(c.dstRoot, rel), rel, info)
}

func (c *copyVisitor) OnSkip(path string) {
	rel, err := c.rel(path)
	if err != nil {
		rel = path
	}
	c.fc.skip(rel)
}

func (c *copyVisitor) rel(path string) (string, error) {
	rel, err := filepath.Rel(c.srcRoot, path)
	if err != nil {
		return "", fmt.Errorf("internal: path %s escaped source root %s: %w", path, c.srcRoot, err)
	}
	return rel, nil
}
