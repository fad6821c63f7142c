package ui

import (
	"github.com/genbak/genbak/internal/event"
	"github.com/genbak/genbak/internal/stats"
)

// quietPresenter consumes events but produces no output.
type quietPresenter struct {
	stats *stats.Collector
}

func (p *quietPresenter) Run(events <-chan event.Event) error {
	for range events {
		// Counters are kept by the engine on the collector directly;
		// presenters only read from it, never write.
	}
	return nil
}

func (p *quietPresenter) Summary() string {
	return ""
}
