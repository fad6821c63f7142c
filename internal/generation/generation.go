// Package generation manages the timestamped snapshot directories that make
// up a backup root: one directory per completed run, named by the run's
// start time, plus an "-inprogress" working directory while a run is active.
package generation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Layout is the directory-name timestamp format. It intentionally avoids
// characters that are invalid on common filesystems.
const Layout = "2006-01-02 15-04-05"

// workingSuffix marks a snapshot directory that has not been finalized.
const workingSuffix = "-inprogress"

// Generation is one completed snapshot directory under a backup root.
type Generation struct {
	Name string
	Path string
	Time time.Time
}

// Parse interprets a directory name as a generation timestamp.
func Parse(name string) (time.Time, error) {
	return time.Parse(Layout, name)
}

// List returns all completed generations under root, oldest first. Entries
// whose names do not parse as timestamps (including working directories) are
// ignored.
func List(root string) ([]Generation, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read backup root %s: %w", root, err)
	}

	var gens []Generation
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasSuffix(entry.Name(), workingSuffix) {
			continue
		}
		ts, err := Parse(entry.Name())
		if err != nil {
			continue
		}
		gens = append(gens, Generation{
			Name: entry.Name(),
			Path: filepath.Join(root, entry.Name()),
			Time: ts,
		})
	}

	sort.Slice(gens, func(i, j int) bool { return gens[i].Time.Before(gens[j].Time) })
	return gens, nil
}

// Latest returns the most recent completed generation, or nil if the backup
// root holds none (first-ever run).
func Latest(root string) (*Generation, error) {
	gens, err := List(root)
	if err != nil {
		return nil, err
	}
	if len(gens) == 0 {
		return nil, nil
	}
	return &gens[len(gens)-1], nil
}

// Working is an open, not-yet-finalized snapshot directory.
type Working struct {
	// Name is the final generation name (no suffix).
	Name string
	// Path is the working directory, carrying the -inprogress suffix.
	Path string
	// FinalPath is where the directory lands on Finalize.
	FinalPath string
}

// Plan computes the working-directory layout for a run starting at ts
// without touching the filesystem. Dry runs use a plan directly; Open is
// Plan plus directory creation.
func Plan(root string, ts time.Time) *Working {
	name := ts.Format(Layout)
	return &Working{
		Name:      name,
		Path:      filepath.Join(root, name+workingSuffix),
		FinalPath: filepath.Join(root, name),
	}
}

// Open creates the working directory for a run starting at ts. The backup
// root is created if missing.
func Open(root string, ts time.Time) (*Working, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create backup root %s: %w", root, err)
	}

	w := Plan(root, ts)
	if err := os.Mkdir(w.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create working dir %s: %w", w.Path, err)
	}
	return w, nil
}

// Finalize atomically renames the working directory to its final name,
// making the generation visible to Latest. Only called after a fully
// successful run; an aborted run leaves the -inprogress directory behind.
func (w *Working) Finalize() error {
	if err := os.Rename(w.Path, w.FinalPath); err != nil {
		return fmt.Errorf("finalize %s: %w", w.Path, err)
	}
	return nil
}
