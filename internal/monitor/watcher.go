// Package monitor watches a joined class session for questions and drives
// each one through capture, suggestion, notification, decision, and answer
// submission.
package monitor

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/AryaBuddha/iclicker-evade/internal/browser"
	"github.com/AryaBuddha/iclicker-evade/internal/logging"
	"github.com/AryaBuddha/iclicker-evade/internal/suggest"
	"github.com/AryaBuddha/iclicker-evade/internal/ui"
)

// ErrMonitoringFailed is returned when the session page stops being readable
// for a sustained run of polls.
var ErrMonitoringFailed = errors.New("monitoring failed")

const (
	// QuestionPath is the structural position of the active question
	// container in the portal's Angular layout.
	QuestionPath = "/html/body/app-root/ng-component/div/ng-component/app-poll/main/div/app-multiple-choice-question/div[3]"

	// SelectedButtonSel marks an answer control that has already been
	// chosen, either by us or by the operator in the browser.
	SelectedButtonSel = "button.btn-selected"

	// maxReadFailures is the run of consecutive page read failures that
	// escalates to ErrMonitoringFailed. Matches the join waiter's policy.
	maxReadFailures = 12
)

// ValidAnswers is the closed set of answer letters a question accepts.
var ValidAnswers = []string{"A", "B", "C", "D", "E"}

// State is the watcher's position in the question lifecycle.
type State int

const (
	// StateIdle: no question tracked; polling for a new one.
	StateIdle State = iota
	// StateProcessing: a detected question is being captured, decided,
	// and submitted. The poll loop does not run concurrently with this.
	StateProcessing
	// StateAwaitingClear: an answer was submitted; waiting for the page
	// to reflect it before re-arming detection.
	StateAwaitingClear
)

// Suggester produces an advisory answer for a captured question.
type Suggester interface {
	Suggest(imagePath, questionText string) (*suggest.Suggestion, error)
}

// Notifier dispatches an out-of-band alert for a detected question.
type Notifier interface {
	QuestionAlert(questionText, imagePath string, suggestion *suggest.Suggestion) error
}

// Watcher is the post-join monitoring loop. It owns the "last seen" question
// state; independent watchers can run against independent drivers.
type Watcher struct {
	driver    browser.Driver
	interval  time.Duration
	suggester Suggester // optional
	notifier  Notifier  // optional
	prompter  *ui.Prompter
	spinner   *ui.Spinner
	log       *logging.Logger
	dir       string

	// Injection points for tests.
	sleep func(time.Duration)
	now   func() time.Time

	state           State
	lastFingerprint string
	readFailures    int
}

// Options configures a Watcher.
type Options struct {
	Driver      browser.Driver
	Interval    time.Duration
	Suggester   Suggester
	Notifier    Notifier
	Prompter    *ui.Prompter
	Spinner     *ui.Spinner
	Logger      *logging.Logger
	SnapshotDir string
}

// New builds a Watcher in the Idle state.
func New(opts Options) *Watcher {
	log := opts.Logger
	if log == nil {
		log = logging.NewDiscard()
	}
	dir := opts.SnapshotDir
	if dir == "" {
		dir = "questions"
	}
	return &Watcher{
		driver:    opts.Driver,
		interval:  opts.Interval,
		suggester: opts.Suggester,
		notifier:  opts.Notifier,
		prompter:  opts.Prompter,
		spinner:   opts.Spinner,
		log:       log,
		dir:       dir,
		sleep:     time.Sleep,
		now:       time.Now,
		state:     StateIdle,
	}
}

// State returns the watcher's current lifecycle state.
func (w *Watcher) State() State { return w.state }

// Run polls until the operator aborts or the page escalates to
// ErrMonitoringFailed. It never returns on question-level failures.
func (w *Watcher) Run() error {
	w.log.Info("question monitoring started", "interval", w.interval.String(), "snapshot_dir", w.dir)
	w.spinner.Start("Monitoring for questions...")
	defer w.spinner.Stop()

	start := w.now()
	for attempt := 1; ; attempt++ {
		if err := w.Poll(); err != nil {
			return err
		}
		if w.state == StateIdle {
			elapsed := int(w.now().Sub(start).Seconds())
			w.spinner.Update(fmt.Sprintf("Monitoring for questions... (elapsed: %ds, attempt: %d)", elapsed, attempt))
		}
		w.sleep(w.interval)
	}
}

// Poll runs one detection cycle. Exported so tests can drive the state
// machine with scripted drivers instead of real time.
func (w *Watcher) Poll() error {
	switch w.state {
	case StateAwaitingClear:
		return w.pollAwaitingClear()
	default:
		return w.pollIdle()
	}
}

// pollIdle looks for a new, unanswered question.
func (w *Watcher) pollIdle() error {
	text, err := w.driver.Text(browser.XPath(QuestionPath))
	if err != nil {
		if errors.Is(err, browser.ErrNotFound) {
			// No question on the page. Normal.
			w.readFailures = 0
			return nil
		}
		return w.recordReadFailure(err)
	}
	w.readFailures = 0

	fp := fingerprint(strings.TrimSpace(text))
	if fp == w.lastFingerprint {
		return nil
	}

	answered, err := w.driver.Exists(browser.CSS(SelectedButtonSel))
	if err != nil {
		return w.recordReadFailure(err)
	}
	if answered {
		// Seen and already handled in the browser; don't reprocess.
		w.log.Info("question already answered, skipping")
		w.lastFingerprint = fp
		return nil
	}

	return w.process(strings.TrimSpace(text), fp)
}

// process runs the Detected→Processing flow for one question:
// capture → suggest → notify → decide → submit.
func (w *Watcher) process(text, fp string) error {
	w.state = StateProcessing
	w.lastFingerprint = fp
	w.spinner.Stop()
	w.log.Info("question detected", "fingerprint", fp[:12])

	out := w.prompter.Out()
	fmt.Fprintln(out, "\n🚨 QUESTION DETECTED!")
	if text != "" {
		fmt.Fprintf(out, "❓ Question content:\n%s\n", text)
	}

	snap := w.capture(text)

	var suggestion *suggest.Suggestion
	if w.suggester != nil && snap.ImagePath != "" {
		fmt.Fprintln(out, "🤖 Getting answer suggestion...")
		var err error
		suggestion, err = w.suggester.Suggest(snap.ImagePath, snap.ExtractedText)
		if err != nil {
			// Advisory only; a failed suggestion never blocks the answer.
			w.log.Warn("suggestion failed", "error", err)
			fmt.Fprintln(out, "⚠️  Suggestion unavailable, answer manually.")
			suggestion = nil
		} else {
			printSuggestion(out, suggestion)
		}
	}

	if w.notifier != nil {
		if err := w.notifier.QuestionAlert(snap.ExtractedText, snap.ImagePath, suggestion); err != nil {
			w.log.Warn("notification failed", "error", err)
			fmt.Fprintln(out, "⚠️  Notification failed.")
		}
	}

	choice, err := w.decide(suggestion)
	if err != nil {
		return err
	}

	if !w.submit(choice) {
		// Give the question back to detection: if it is still on the
		// page and unanswered, the next poll retries from scratch.
		w.lastFingerprint = ""
		w.state = StateIdle
		w.spinner.Start("Monitoring for questions...")
		return nil
	}

	w.state = StateAwaitingClear
	fmt.Fprintln(out, "🔄 Waiting for the question to clear...")
	return nil
}

// decide prompts the operator for an answer letter. An empty entry accepts
// the suggestion when one exists; otherwise invalid input re-prompts without
// limit. There is no timeout here: deliberation is the human's.
func (w *Watcher) decide(suggestion *suggest.Suggestion) (string, error) {
	prompt := "⚡ Select your answer (A, B, C, D, E): "
	if suggestion != nil {
		prompt = fmt.Sprintf("⚡ Select your answer (A, B, C, D, E) [suggested: %s]: ", suggestion.Choice)
	}
	for {
		line, err := w.prompter.Line(prompt)
		if err != nil {
			return "", err
		}
		letter := strings.ToUpper(line)
		if letter == "" && suggestion != nil {
			fmt.Fprintf(w.prompter.Out(), "Using suggested answer: %s\n", suggestion.Choice)
			return suggestion.Choice, nil
		}
		for _, valid := range ValidAnswers {
			if letter == valid {
				return letter, nil
			}
		}
		fmt.Fprintln(w.prompter.Out(), "❌ Invalid choice. Enter A, B, C, D, or E.")
	}
}

// pollAwaitingClear waits for the page to reflect the submitted answer, or
// for the question to change or disappear, before re-arming detection.
func (w *Watcher) pollAwaitingClear() error {
	selected, err := w.driver.Exists(browser.CSS(SelectedButtonSel))
	if err != nil {
		return w.recordReadFailure(err)
	}
	if selected {
		w.rearm("answer confirmed")
		return nil
	}

	text, err := w.driver.Text(browser.XPath(QuestionPath))
	if err != nil {
		if errors.Is(err, browser.ErrNotFound) {
			w.rearm("question cleared")
			return nil
		}
		return w.recordReadFailure(err)
	}
	w.readFailures = 0

	if fingerprint(strings.TrimSpace(text)) != w.lastFingerprint {
		w.rearm("question replaced")
	}
	return nil
}

func (w *Watcher) rearm(reason string) {
	w.readFailures = 0
	w.state = StateIdle
	w.log.Info("re-armed", "reason", reason)
	fmt.Fprintf(w.prompter.Out(), "📝 %s. Waiting for next question...\n", strings.ToUpper(reason[:1])+reason[1:])
	w.spinner.Start("Monitoring for questions...")
}

// recordReadFailure counts a structural read failure and escalates once the
// run of consecutive failures crosses the threshold.
func (w *Watcher) recordReadFailure(err error) error {
	w.readFailures++
	w.log.Warn("page read failed", "consecutive", w.readFailures, "error", err)
	if w.readFailures >= maxReadFailures {
		return fmt.Errorf("%w: page unreadable for %d consecutive polls: %v", ErrMonitoringFailed, w.readFailures, err)
	}
	return nil
}

func printSuggestion(out io.Writer, s *suggest.Suggestion) {
	fmt.Fprintf(out, "\n🤖 SUGGESTION:\n")
	fmt.Fprintf(out, "   Answer: %s\n", s.Choice)
	fmt.Fprintf(out, "   Confidence: %.1f%%\n", s.Confidence*100)
	fmt.Fprintf(out, "   Reasoning: %s\n", s.Reasoning)
	fmt.Fprintf(out, "   Model: %s (%.2fs)\n", s.Model, s.Elapsed.Seconds())
}
