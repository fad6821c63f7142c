package engine

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/genbak/genbak/internal/event"
	"github.com/genbak/genbak/internal/platform"
	"github.com/genbak/genbak/internal/stats"
)

// fileCopier holds the machinery shared by the backup and plain-copy
// visitors: tmp-file creation, the platform copy ladder, the optional
// io_uring backend, bandwidth limiting, stats, and events.
type fileCopier struct {
	ctx     context.Context
	dryRun  bool
	iouring *platform.IOURingCopier
	limiter *rate.Limiter
	stats   *stats.Collector
	events  chan<- event.Event
}

func (fc *fileCopier) emit(ev event.Event) {
	if fc.events != nil {
		ev.Timestamp = time.Now()
		fc.events <- ev
	}
}

// makeDir creates the destination directory (and any missing ancestors),
// preserving the source directory's permission bits. Creating an
// already-existing directory is a no-op.
func (fc *fileCopier) makeDir(dst, rel string, info fs.FileInfo) error {
	if !fc.dryRun {
		if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
			return fmt.Errorf("mkdir %s: %w", dst, err)
		}
	}
	fc.stats.AddDirsCreated(1)
	fc.emit(event.Event{Type: event.DirCreated, Path: rel})
	return nil
}

// copyFile copies src to dst byte-for-byte via a uuid-suffixed temporary
// file in the destination directory, renamed into place on success.
func (fc *fileCopier) copyFile(src, dst, rel string, info fs.FileInfo) error {
	if fc.dryRun {
		fc.stats.AddFilesCopied(1)
		fc.stats.AddBytesCopied(info.Size())
		fc.emit(event.Event{Type: event.FileCopied, Path: rel, Size: info.Size()})
		return nil
	}

	dir := filepath.Dir(dst)
	tmpName := fmt.Sprintf(".%s.%s.genbak-tmp", filepath.Base(dst), uuid.New().String()[:8])
	tmpPath := filepath.Join(dir, tmpName)

	RegisterTmp(tmpPath)
	defer func() {
		DeregisterTmp(tmpPath)
		_ = os.Remove(tmpPath) // no-op if rename succeeded
	}()

	tmpFd, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		fc.fail(rel, info.Size(), err)
		return fmt.Errorf("create tmp %s: %w", tmpPath, err)
	}

	written, err := fc.copyData(src, tmpFd, info.Size())
	if err != nil {
		tmpFd.Close()
		fc.fail(rel, info.Size(), err)
		return fmt.Errorf("copy %s: %w", src, err)
	}

	if err := tmpFd.Close(); err != nil {
		fc.fail(rel, info.Size(), err)
		return fmt.Errorf("close tmp %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		fc.fail(rel, info.Size(), err)
		return fmt.Errorf("rename %s -> %s: %w", tmpPath, dst, err)
	}

	// The next run compares source mtimes against this copy, so the copy
	// must carry the source's timestamp.
	if err := os.Chtimes(dst, time.Now(), info.ModTime()); err != nil {
		fc.fail(rel, info.Size(), err)
		return fmt.Errorf("set mtime %s: %w", dst, err)
	}

	fc.stats.AddFilesCopied(1)
	fc.stats.AddBytesCopied(written)
	fc.emit(event.Event{Type: event.FileCopied, Path: rel, Size: written})
	return nil
}

// linkFile hardlinks dst to the prior generation's copy at priorPath,
// sharing storage across generations.
func (fc *fileCopier) linkFile(priorPath, dst, rel string, size int64) error {
	if !fc.dryRun {
		if err := os.Link(priorPath, dst); err != nil {
			fc.fail(rel, size, err)
			return fmt.Errorf("hardlink %s -> %s: %w", dst, priorPath, err)
		}
	}
	fc.stats.AddFilesLinked(1)
	fc.emit(event.Event{Type: event.FileLinked, Path: rel, Size: size})
	return nil
}

func (fc *fileCopier) copyData(src string, dstFd *os.File, size int64) (int64, error) {
	if size == 0 {
		return 0, nil
	}

	// Kernel-side copies bypass a userspace limiter, so a bandwidth cap
	// forces the buffered read path.
	if fc.limiter != nil {
		return fc.copyLimited(src, dstFd)
	}

	if fc.iouring != nil {
		result, err := fc.iouring.CopyFile(platform.CopyFileParams{
			SrcPath: src,
			DstFd:   dstFd,
			SrcSize: size,
		})
		return result.BytesWritten, err
	}

	result, err := platform.CopyFile(platform.CopyFileParams{
		SrcPath: src,
		DstFd:   dstFd,
		SrcSize: size,
	})
	return result.BytesWritten, err
}

func (fc *fileCopier) copyLimited(src string, dstFd *os.File) (int64, error) {
	srcFd, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer srcFd.Close()

	return io.Copy(dstFd, newRateLimitedReader(fc.ctx, srcFd, fc.limiter))
}

func (fc *fileCopier) fail(rel string, size int64, err error) {
	fc.stats.AddFilesFailed(1)
	fc.emit(event.Event{Type: event.FileFailed, Path: rel, Size: size, Error: err})
}

// skip records an entry the walker pruned (excluded name or non-regular
// file) so skips show up in stats and the event stream.
func (fc *fileCopier) skip(rel string) {
	fc.stats.AddFilesSkipped(1)
	fc.emit(event.Event{Type: event.FileSkipped, Path: rel})
}
