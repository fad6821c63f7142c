// Package walk implements the depth-first directory traversal that the
// backup engine is built on. The walker enumerates entries and hands them to
// a Visitor; it never mutates the filesystem itself.
package walk

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Visitor receives every file and directory the walker discovers. Either
// method may return an error, which aborts the walk immediately.
type Visitor interface {
	// OnFile is called once per regular file.
	OnFile(path string, info fs.FileInfo) error
	// OnDir is called once per directory, before any entry beneath it.
	OnDir(path string, info fs.FileInfo) error
}

// Exclusions is a set of bare entry names. Any entry whose final path
// component is in the set is skipped; for directories the whole subtree is
// pruned.
type Exclusions map[string]struct{}

// NewExclusions builds an exclusion set from bare names. Empty names are
// ignored.
func NewExclusions(names ...string) Exclusions {
	ex := make(Exclusions, len(names))
	for _, n := range names {
		if n != "" {
			ex[n] = struct{}{}
		}
	}
	return ex
}

// SkipObserver is optionally implemented by visitors that want skipped
// entries (excluded names, non-regular files) reported to them. The walker
// still prunes the entry either way.
type SkipObserver interface {
	OnSkip(path string)
}

// Contains reports whether the bare name is excluded.
func (ex Exclusions) Contains(name string) bool {
	_, ok := ex[name]
	return ok
}

// Names returns the excluded names in unspecified order.
func (ex Exclusions) Names() []string {
	names := make([]string, 0, len(ex))
	for n := range ex {
		names = append(names, n)
	}
	return names
}

// Walk traverses the tree rooted at root depth-first, invoking the visitor
// for every directory and regular file not pruned by excl. Directories are
// visited before anything beneath them. Sibling order is whatever the OS
// returns. Non-regular, non-directory entries (symlinks, devices, sockets)
// are skipped; visitors implementing SkipObserver are told about every
// pruned entry.
//
// The first error — from reading a directory, querying metadata, or the
// visitor itself — aborts the walk and is returned.
//
// The traversal uses an explicit work-list of pending directories rather
// than recursion, so stack depth is independent of tree depth.
func Walk(root string, excl Exclusions, v Visitor) error {
	pending := []string{root}

	for len(pending) > 0 {
		dir := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("read dir %s: %w", dir, err)
		}

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if excl.Contains(entry.Name()) {
				notifySkip(v, path)
				continue
			}

			info, err := entry.Info()
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}

			switch {
			case info.IsDir():
				if err := v.OnDir(path, info); err != nil {
					return err
				}
				pending = append(pending, path)
			case info.Mode().IsRegular():
				if err := v.OnFile(path, info); err != nil {
					return err
				}
			default:
				// Symlinks and special files are not backed up.
				slog.Debug("skipping non-regular entry", "path", path, "mode", info.Mode().String())
				notifySkip(v, path)
			}
		}
	}

	return nil
}

func notifySkip(v Visitor, path string) {
	if so, ok := v.(SkipObserver); ok {
		so.OnSkip(path)
	}
}
