package engine

import (
	"io/fs"
	"time"
)

// action is the per-file outcome of comparing source metadata against the
// prior generation.
type action int

const (
	actionCopy action = iota
	actionLink
)

// reason explains why a copy was chosen; link needs no explanation.
type reason int

const (
	reasonUnchanged reason = iota // action is link
	reasonNew                     // no prior counterpart
	reasonSizeChanged
	reasonModTimeChanged
	reasonTimestampSuspect // comparison inconclusive, copied to be safe
)

// decide compares freshly queried source metadata against the prior record.
// minDiff is the modification-time threshold in whole seconds: a difference
// of at least minDiff seconds means changed. prior == nil means the file is
// new.
func decide(info fs.FileInfo, prior *Record, minDiff int64) (action, reason) {
	if prior == nil {
		return actionCopy, reasonNew
	}
	if info.Size() != prior.Size {
		return actionCopy, reasonSizeChanged
	}

	srcMod := info.ModTime()
	if srcMod.IsZero() || prior.ModTime.IsZero() {
		// A backend that cannot report a usable timestamp must not make us
		// silently skip a changed file.
		return actionCopy, reasonTimestampSuspect
	}

	if absSeconds(srcMod, prior.ModTime) >= minDiff {
		return actionCopy, reasonModTimeChanged
	}
	return actionLink, reasonUnchanged
}

// absSeconds returns the absolute difference between two instants in whole
// seconds, matching the second-resolution comparison of the on-disk
// timestamps.
func absSeconds(a, b time.Time) int64 {
	d := a.Unix() - b.Unix()
	if d < 0 {
		d = -d
	}
	return d
}
