package session

import (
	"fmt"
	"strconv"

	"github.com/AryaBuddha/iclicker-evade/internal/logging"
	"github.com/AryaBuddha/iclicker-evade/internal/match"
	"github.com/AryaBuddha/iclicker-evade/internal/ui"
)

// Source records where a selection query came from, for log attribution.
type Source string

const (
	SourceCLI         Source = "cli"
	SourceConfig      Source = "config"
	SourceInteractive Source = "interactive"
)

// Query is a request to pick one class from the scanned list.
type Query struct {
	RequestedName string
	Source        Source
}

// Selector resolves a Query against the scanned class names, falling back to
// an interactive numbered list when no name is given or nothing matches.
type Selector struct {
	prompter *ui.Prompter
	log      *logging.Logger
}

// NewSelector builds a Selector. A nil logger discards records.
func NewSelector(prompter *ui.Prompter, log *logging.Logger) *Selector {
	if log == nil {
		log = logging.NewDiscard()
	}
	return &Selector{prompter: prompter, log: log}
}

// Select returns the chosen class name. An empty candidate list fails with
// ErrNoClassAvailable; a closed input stream surfaces ui.ErrAborted.
func (s *Selector) Select(q Query, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoClassAvailable
	}

	if q.RequestedName != "" {
		if name, ok := match.Match(q.RequestedName, candidates); ok {
			s.log.Info("class resolved", "requested", q.RequestedName, "resolved", name, "source", q.Source)
			return name, nil
		}
		s.log.Warn("requested class did not resolve", "requested", q.RequestedName, "source", q.Source)
		fmt.Fprintf(s.prompter.Out(), "⚠️  Could not match class %q, falling back to interactive selection\n", q.RequestedName)
	}

	return s.selectInteractive(candidates)
}

// selectInteractive shows a 1-based numbered list and reads the operator's
// pick. A non-numeric entry is tried as a class name before re-prompting;
// invalid input re-prompts without limit.
func (s *Selector) selectInteractive(candidates []string) (string, error) {
	fmt.Fprintln(s.prompter.Out(), "\nAvailable classes:")
	for i, name := range candidates {
		fmt.Fprintf(s.prompter.Out(), "  %d. %s\n", i+1, name)
	}

	for {
		line, err := s.prompter.Line("Class number (or name): ")
		if err != nil {
			return "", err
		}

		if n, err := strconv.Atoi(line); err == nil {
			if n >= 1 && n <= len(candidates) {
				return candidates[n-1], nil
			}
			fmt.Fprintf(s.prompter.Out(), "Enter a number between 1 and %d.\n", len(candidates))
			continue
		}

		if line != "" {
			if name, ok := match.Match(line, candidates); ok {
				return name, nil
			}
		}
		fmt.Fprintln(s.prompter.Out(), "No matching class. Enter a listed number or name.")
	}
}
