package ui

import (
	"time"

	"github.com/briandowns/spinner"
)

// Spinner is a single-line rotating indicator shown between polls. All
// methods are nil-safe so tests can run the poll loops without one.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner builds a stopped spinner. Start begins animation on stdout,
// rewriting a single line rather than printing per update.
func NewSpinner() *Spinner {
	return &Spinner{s: spinner.New(spinner.CharSets[9], 120*time.Millisecond)}
}

// Start begins the animation with the given status message.
func (sp *Spinner) Start(msg string) {
	if sp == nil || sp.s == nil {
		return
	}
	sp.s.Suffix = " " + msg
	sp.s.Start()
}

// Update replaces the status message without restarting the animation.
func (sp *Spinner) Update(msg string) {
	if sp == nil || sp.s == nil {
		return
	}
	sp.s.Suffix = " " + msg
}

// Stop halts the animation and clears the line.
func (sp *Spinner) Stop() {
	if sp == nil || sp.s == nil {
		return
	}
	sp.s.Stop()
}
