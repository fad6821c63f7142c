// Package engine implements the generation-based backup: a prior-generation
// scan, then one walk per source directory through a visitor that hardlinks
// unchanged files into the new snapshot and copies everything else.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/genbak/genbak/internal/event"
	"github.com/genbak/genbak/internal/generation"
	"github.com/genbak/genbak/internal/platform"
	"github.com/genbak/genbak/internal/stats"
	"github.com/genbak/genbak/internal/walk"
)

// DefaultMinDiff is the modification-time threshold in seconds: any
// difference of at least one whole second counts as changed. This tolerates
// filesystems that round or jitter sub-second timestamps.
const DefaultMinDiff = 1

// Config describes one backup run.
type Config struct {
	// BackupRoot is the directory holding timestamped generations.
	BackupRoot string
	// Sources are the directory trees to back up. Each maps under the
	// snapshot by its leaf name, so leaf names must be distinct.
	Sources []string
	// Exclude holds bare entry names pruned from every traversal.
	Exclude walk.Exclusions
	// MinDiff is the modification-time threshold in seconds.
	MinDiff int64
	// DryRun walks and decides without writing anything.
	DryRun bool
	// Verify re-reads the finished snapshot and compares BLAKE3 digests
	// against the sources before the generation is finalized.
	Verify bool
	// UseIOURing routes copies through io_uring when available.
	UseIOURing bool
	// BWLimit caps copy throughput in bytes/sec; 0 means unlimited.
	BWLimit int64

	// Events receives progress events in walk order; may be nil.
	Events chan<- event.Event
	// Stats is the caller-owned accumulator; created if nil.
	Stats *stats.Collector

	// Now overrides the run start time; nil means time.Now.
	Now func() time.Time
}

// Result is the outcome of a backup run.
type Result struct {
	// Generation is the snapshot name (final, without -inprogress).
	Generation string
	// Finalized reports whether the working directory was renamed into
	// place. False on error and for dry runs.
	Finalized bool
	Stats     stats.Snapshot
	Verify    *VerifyResult
	Err       error
}

// Run executes one backup run, blocking until complete. The first
// filesystem error aborts the run, leaving the -inprogress working
// directory (and any partially copied files) on disk for inspection.
func Run(ctx context.Context, cfg Config) Result {
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}

	fail := func(err error) Result {
		return Result{Stats: cfg.Stats.Snapshot(), Err: err}
	}

	if len(cfg.Sources) == 0 {
		return fail(errors.New("no source directories"))
	}
	sources, err := validateSources(cfg.Sources)
	if err != nil {
		return fail(err)
	}

	if !cfg.DryRun {
		lock, err := generation.Acquire(cfg.BackupRoot)
		if err != nil {
			return fail(err)
		}
		defer func() {
			if err := lock.Release(); err != nil {
				slog.Warn("failed to release backup lock", "error", err)
			}
		}()
	}

	prior, err := latestPrior(cfg.BackupRoot)
	if err != nil {
		return fail(err)
	}

	emit(cfg.Events, event.Event{Type: event.RunStarted, Path: cfg.BackupRoot})

	var work *generation.Working
	if cfg.DryRun {
		work = generation.Plan(cfg.BackupRoot, now())
	} else {
		work, err = generation.Open(cfg.BackupRoot, now())
		if err != nil {
			return fail(err)
		}
	}
	emit(cfg.Events, event.Event{Type: event.GenerationOpened, Path: work.Name})

	var journal Journal
	if prior != nil {
		journal, err = ScanPrior(prior.Path, cfg.Exclude)
		if err != nil {
			return fail(err)
		}
		slog.Debug("prior generation scanned", "generation", prior.Name, "files", len(journal))
	} else {
		slog.Info("no prior generation, everything will be copied")
	}

	fc := &fileCopier{
		ctx:    ctx,
		dryRun: cfg.DryRun,
		stats:  cfg.Stats,
		events: cfg.Events,
	}
	if cfg.BWLimit > 0 {
		fc.limiter = NewBWLimiter(cfg.BWLimit)
	}
	if cfg.UseIOURing && !cfg.DryRun {
		copier, err := platform.NewIOURingCopier(64)
		if err != nil {
			slog.Warn("io_uring unavailable, using regular copy path", "error", err)
		} else {
			fc.iouring = copier
			defer copier.Close()
		}
	}
	defer CleanupTmpFiles()

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return Result{Generation: work.Name, Stats: cfg.Stats.Snapshot(), Err: err}
		}

		emit(cfg.Events, event.Event{Type: event.SourceStarted, Path: src})

		leaf := filepath.Base(src)
		dstDir := filepath.Join(work.Path, leaf)
		if !cfg.DryRun {
			if err := os.MkdirAll(dstDir, 0o755); err != nil {
				return Result{
					Generation: work.Name,
					Stats:      cfg.Stats.Snapshot(),
					Err:        fmt.Errorf("create destination %s: %w", dstDir, err),
				}
			}
		}

		var v walk.Visitor
		if prior != nil {
			v = &backupVisitor{
				fc:        fc,
				journal:   journal,
				srcRoot:   src,
				dstRoot:   dstDir,
				priorDir:  filepath.Join(prior.Path, leaf),
				keyPrefix: leaf,
				minDiff:   cfg.MinDiff,
			}
		} else {
			v = &copyVisitor{fc: fc, srcRoot: src, dstRoot: dstDir}
		}

		if err := walk.Walk(src, cfg.Exclude, v); err != nil {
			return Result{
				Generation: work.Name,
				Stats:      cfg.Stats.Snapshot(),
				Err:        fmt.Errorf("backup of %s: %w", src, err),
			}
		}
	}

	result := Result{Generation: work.Name, Stats: cfg.Stats.Snapshot()}

	if cfg.Verify && !cfg.DryRun {
		vr := VerifySnapshot(ctx, VerifyConfig{
			Sources:      sources,
			SnapshotRoot: work.Path,
			Exclude:      cfg.Exclude,
			Events:       cfg.Events,
			Stats:        cfg.Stats,
		})
		result.Verify = &vr
		result.Stats = cfg.Stats.Snapshot()
		if vr.Failed > 0 {
			result.Err = fmt.Errorf("verification failed for %d file(s), snapshot left as %s",
				vr.Failed, work.Path)
			return result
		}
	}

	if !cfg.DryRun {
		if err := work.Finalize(); err != nil {
			result.Err = err
			return result
		}
		result.Finalized = true
	}

	emit(cfg.Events, event.Event{Type: event.RunComplete, Path: work.Name})
	return result
}

// validateSources cleans the source paths, checks each is a readable
// directory, and rejects duplicate leaf names, which would silently merge
// under the same snapshot subdirectory.
func validateSources(sources []string) ([]string, error) {
	cleaned := make([]string, 0, len(sources))
	leaves := make(map[string]string, len(sources))

	for _, src := range sources {
		clean := filepath.Clean(src)
		info, err := os.Stat(clean)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("source %s is not a directory", src)
		}

		leaf := filepath.Base(clean)
		if leaf == string(filepath.Separator) || leaf == "." {
			return nil, fmt.Errorf("source %s has no usable leaf name", src)
		}
		if other, dup := leaves[leaf]; dup {
			return nil, fmt.Errorf("sources %s and %s share leaf name %q and would collide in the snapshot",
				other, clean, leaf)
		}
		leaves[leaf] = clean
		cleaned = append(cleaned, clean)
	}
	return cleaned, nil
}

// latestPrior resolves the most recent completed generation, treating a
// missing backup root as "no prior" (first run against a fresh root).
func latestPrior(root string) (*generation.Generation, error) {
	prior, err := generation.Latest(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return prior, nil
}

func emit(ch chan<- event.Event, ev event.Event) {
	if ch != nil {
		ev.Timestamp = time.Now()
		ch <- ev
	}
}
