package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/genbak/genbak/internal/event"
	"github.com/genbak/genbak/internal/stats"
)

// plainPresenter outputs one line per file to stdout, and periodic
// progress to stderr. With styled set it colors lines via lipgloss.
type plainPresenter struct {
	w       io.Writer
	errW    io.Writer
	stats   *stats.Collector
	styled  bool
	verbose bool

	// Zero means the defaults (1s tick, 5s progress); tests shorten them.
	tickEvery     time.Duration
	progressEvery time.Duration
}

// Run consumes events until the channel closes. It also owns the
// throughput clock: the collector's rolling-speed ring only advances when
// someone calls Tick, and that someone is the presenter.
func (p *plainPresenter) Run(events <-chan event.Event) error {
	tickEvery := p.tickEvery
	if tickEvery == 0 {
		tickEvery = time.Second
	}
	progressEvery := p.progressEvery
	if progressEvery == 0 {
		progressEvery = 5 * time.Second
	}

	tick := time.NewTicker(tickEvery)
	defer tick.Stop()
	progress := time.NewTicker(progressEvery)
	defer progress.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-tick.C:
			p.stats.Tick()
		case <-progress.C:
			p.printProgress()
		}
	}
}

func (p *plainPresenter) handleEvent(ev event.Event) {
	switch ev.Type {
	case event.RunStarted:
		fmt.Fprintln(p.w, p.style(styleHeader, "backing up to "+ev.Path))
	case event.GenerationOpened:
		fmt.Fprintln(p.w, p.style(styleDetail, "generation "+ev.Path))
	case event.SourceStarted:
		fmt.Fprintln(p.w, p.style(styleHeader, "source "+ev.Path))
	case event.FileCopied:
		speed := p.stats.RollingSpeed(5)
		fmt.Fprintf(p.w, "%s  %s  %s  %s\n",
			p.style(styleCopied, "copy"), ev.Path, FormatBytes(ev.Size), FormatRate(speed))
	case event.FileLinked:
		if p.verbose {
			fmt.Fprintf(p.w, "%s  %s  %s\n",
				p.style(styleLinked, "link"), ev.Path, FormatBytes(ev.Size))
		}
	case event.FileSkipped:
		if p.verbose {
			fmt.Fprintf(p.w, "skip  %s\n", ev.Path)
		}
	case event.TimestampSuspect:
		fmt.Fprintf(p.w, "%s  %s has no usable timestamp, copying\n",
			p.style(styleSuspect, "warn"), ev.Path)
	case event.FileFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.w, "%s  %s  %s\n", p.style(styleFailed, "fail"), ev.Path, errMsg)
	case event.VerifyStarted:
		fmt.Fprintln(p.w, p.style(styleVerify, "verifying..."))
	case event.VerifyFailed:
		fmt.Fprintf(p.w, "%s  %s\n", p.style(styleFailed, "MISMATCH"), ev.Path)
	case event.VerifyOK:
		// silent in plain mode
	case event.DirCreated, event.RunComplete:
		// summary covers these
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	fmt.Fprintf(p.errW, "progress: %s copied %s files, %s linked, rate %s\n",
		FormatBytes(snap.BytesCopied),
		FormatCount(snap.FilesCopied),
		FormatCount(snap.FilesLinked),
		FormatRate(p.stats.RollingSpeed(10)),
	)
}

func (p *plainPresenter) Summary() string {
	return p.style(styleSummary, completionSummary(p.stats.Snapshot()))
}

func (p *plainPresenter) style(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}
