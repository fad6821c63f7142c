package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genbak/genbak/internal/event"
	"github.com/genbak/genbak/internal/stats"
)

func runPresenter(t *testing.T, p Presenter, events ...event.Event) {
	t.Helper()
	ch := make(chan event.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	require.NoError(t, p.Run(ch))
}

func TestPlainPresenter_EventLines(t *testing.T) {
	var out, errOut bytes.Buffer
	p := &plainPresenter{w: &out, errW: &errOut, stats: stats.NewCollector()}

	runPresenter(t, p,
		event.Event{Type: event.RunStarted, Path: "/backups"},
		event.Event{Type: event.GenerationOpened, Path: "2024-05-01 03-00-00"},
		event.Event{Type: event.SourceStarted, Path: "/home/user/data"},
		event.Event{Type: event.FileCopied, Path: "data/a.txt", Size: 2048},
		event.Event{Type: event.FileFailed, Path: "data/b.txt", Error: errors.New("permission denied")},
		event.Event{Type: event.TimestampSuspect, Path: "data/c.txt"},
	)

	s := out.String()
	assert.Contains(t, s, "backing up to /backups")
	assert.Contains(t, s, "generation 2024-05-01 03-00-00")
	assert.Contains(t, s, "source /home/user/data")
	assert.Contains(t, s, "copy  data/a.txt  2.0 KiB")
	assert.Contains(t, s, "fail  data/b.txt  permission denied")
	assert.Contains(t, s, "warn  data/c.txt has no usable timestamp")
	assert.Empty(t, errOut.String())
}

func TestPlainPresenter_LinksOnlyWhenVerbose(t *testing.T) {
	var out bytes.Buffer
	p := &plainPresenter{w: &out, errW: &out, stats: stats.NewCollector()}
	runPresenter(t, p, event.Event{Type: event.FileLinked, Path: "data/a.txt", Size: 100})
	assert.Empty(t, out.String())

	out.Reset()
	p.verbose = true
	runPresenter(t, p, event.Event{Type: event.FileLinked, Path: "data/a.txt", Size: 100})
	assert.Contains(t, out.String(), "link  data/a.txt  100 B")
}

func TestPlainPresenter_VerifyLines(t *testing.T) {
	var out bytes.Buffer
	p := &plainPresenter{w: &out, errW: &out, stats: stats.NewCollector()}

	runPresenter(t, p,
		event.Event{Type: event.VerifyStarted},
		event.Event{Type: event.VerifyOK, Path: "data/a.txt"},
		event.Event{Type: event.VerifyFailed, Path: "data/b.txt"},
	)

	s := out.String()
	assert.Contains(t, s, "verifying...")
	assert.NotContains(t, s, "data/a.txt", "VerifyOK is silent")
	assert.Contains(t, s, "MISMATCH  data/b.txt")
}

func TestPlainPresenter_TicksCollector(t *testing.T) {
	var out, errOut bytes.Buffer
	collector := stats.NewCollector()
	collector.AddBytesCopied(10 * 1024 * 1024)

	p := &plainPresenter{
		w:             &out,
		errW:          &errOut,
		stats:         collector,
		tickEvery:     5 * time.Millisecond,
		progressEvery: 25 * time.Millisecond,
	}

	ch := make(chan event.Event)
	done := make(chan error, 1)
	go func() { done <- p.Run(ch) }()

	time.Sleep(60 * time.Millisecond)
	close(ch)
	require.NoError(t, <-done)

	// The presenter's tick loop feeds the ring buffer, so the rolling
	// speed reflects the copied bytes instead of staying at zero.
	assert.Greater(t, collector.RollingSpeed(60), 0.0)

	s := errOut.String()
	assert.Contains(t, s, "progress:")
	assert.NotContains(t, s, "rate 0 B/s")
}

func TestQuietPresenter_Silent(t *testing.T) {
	p := NewPresenter(Config{Quiet: true, Stats: stats.NewCollector()})

	runPresenter(t, p,
		event.Event{Type: event.RunStarted, Path: "/backups"},
		event.Event{Type: event.FileCopied, Path: "a", Size: 10},
	)
	assert.Empty(t, p.Summary())
}

func TestNewPresenter_Plain(t *testing.T) {
	var out bytes.Buffer
	p := NewPresenter(Config{Writer: &out, ErrWriter: &out, Stats: stats.NewCollector()})
	_, ok := p.(*plainPresenter)
	assert.True(t, ok)
}

func TestCompletionSummary(t *testing.T) {
	snap := stats.Snapshot{
		FilesCopied: 48917,
		BytesCopied: 2 << 30,
		FilesLinked: 1200,
		Elapsed:     3*time.Minute + 17*time.Second,
	}
	s := completionSummary(snap)
	assert.Contains(t, s, "done ✓")
	assert.Contains(t, s, "copied 48,917")
	assert.Contains(t, s, "linked 1,200")
	assert.Contains(t, s, "time 3m 17s")
	assert.Contains(t, s, "errors 0")
	assert.NotContains(t, s, "verified")
}

func TestCompletionSummary_FailuresAndVerify(t *testing.T) {
	snap := stats.Snapshot{
		FilesCopied:       10,
		FilesFailed:       2,
		FilesVerified:     8,
		FilesVerifyFailed: 1,
	}
	s := completionSummary(snap)
	assert.Contains(t, s, "done ✗")
	assert.Contains(t, s, "verified 8")
	assert.Contains(t, s, "errors 3")
}
