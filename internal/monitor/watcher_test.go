package monitor

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/AryaBuddha/iclicker-evade/internal/browser"
	"github.com/AryaBuddha/iclicker-evade/internal/suggest"
	"github.com/AryaBuddha/iclicker-evade/internal/ui"
)

// fakeDriver scripts question reads and answered-marker checks per poll.
// Sequences are consumed one entry per call; the last entry repeats.
type fakeDriver struct {
	texts     []string
	textErrs  []error
	textCalls int

	selected []bool
	selErrs  []error
	selCalls int

	clickErr []error
	clicks   []browser.Locator

	shot    []byte
	shotErr error
}

func seqIndex(call, n int) int {
	if call >= n {
		return n - 1
	}
	return call
}

func (d *fakeDriver) Text(loc browser.Locator) (string, error) {
	i := seqIndex(d.textCalls, len(d.texts))
	d.textCalls++
	if i < 0 {
		return "", browser.ErrNotFound
	}
	if i < len(d.textErrs) && d.textErrs[i] != nil {
		return "", d.textErrs[i]
	}
	return d.texts[i], nil
}

func (d *fakeDriver) Exists(loc browser.Locator) (bool, error) {
	i := seqIndex(d.selCalls, len(d.selected))
	d.selCalls++
	if i < 0 {
		return false, nil
	}
	if i < len(d.selErrs) && d.selErrs[i] != nil {
		return false, d.selErrs[i]
	}
	return d.selected[i], nil
}

func (d *fakeDriver) Click(loc browser.Locator) error {
	i := len(d.clicks)
	d.clicks = append(d.clicks, loc)
	if len(d.clickErr) == 0 {
		return nil
	}
	return d.clickErr[seqIndex(i, len(d.clickErr))]
}

func (d *fakeDriver) Navigate(url string) error                              { return nil }
func (d *fakeDriver) BodyText() (string, error)                              { return "", nil }
func (d *fakeDriver) Texts(loc browser.Locator) ([]string, error)            { return nil, nil }
func (d *fakeDriver) SendKeys(loc browser.Locator, text string) error        { return nil }
func (d *fakeDriver) SelectOption(loc browser.Locator, visible string) error { return nil }
func (d *fakeDriver) FullScreenshot() ([]byte, error)                        { return d.shot, d.shotErr }
func (d *fakeDriver) Screenshot() ([]byte, error)                            { return d.shot, d.shotErr }
func (d *fakeDriver) Close() error                                           { return nil }

var _ browser.Driver = (*fakeDriver)(nil)

type fakeSuggester struct {
	suggestion *suggest.Suggestion
	err        error
	calls      int
}

func (f *fakeSuggester) Suggest(imagePath, questionText string) (*suggest.Suggestion, error) {
	f.calls++
	return f.suggestion, f.err
}

type fakeNotifier struct {
	calls int
	err   error
	last  *suggest.Suggestion
}

func (f *fakeNotifier) QuestionAlert(questionText, imagePath string, s *suggest.Suggestion) error {
	f.calls++
	f.last = s
	return f.err
}

func newTestWatcher(t *testing.T, d *fakeDriver, input string, opts Options) (*Watcher, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	opts.Driver = d
	opts.Interval = time.Second
	opts.Prompter = ui.NewPrompter(strings.NewReader(input), &out)
	if opts.SnapshotDir == "" {
		opts.SnapshotDir = t.TempDir()
	}
	w := New(opts)
	w.sleep = func(time.Duration) {}
	return w, &out
}

func TestPollIdleNoQuestion(t *testing.T) {
	d := &fakeDriver{textErrs: []error{browser.ErrNotFound}, texts: []string{""}}
	w, _ := newTestWatcher(t, d, "", Options{})

	if err := w.Poll(); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if w.State() != StateIdle {
		t.Errorf("state = %v, want StateIdle", w.State())
	}
	if len(d.clicks) != 0 {
		t.Errorf("clicked %d times, want 0", len(d.clicks))
	}
}

func TestPollDetectsAndSubmits(t *testing.T) {
	d := &fakeDriver{
		texts:    []string{"What is 2+2?"},
		selected: []bool{false},
		shot:     []byte("png"),
	}
	w, out := newTestWatcher(t, d, "B\n", Options{})

	if err := w.Poll(); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if w.State() != StateAwaitingClear {
		t.Fatalf("state = %v, want StateAwaitingClear", w.State())
	}
	if len(d.clicks) != 1 {
		t.Fatalf("clicked %d times, want 1", len(d.clicks))
	}
	if want := "//button[normalize-space(.)='B']"; d.clicks[0].Sel != want {
		t.Errorf("clicked %q, want %q", d.clicks[0].Sel, want)
	}
	if !strings.Contains(out.String(), "QUESTION DETECTED") {
		t.Errorf("detection banner missing:\n%s", out.String())
	}

	files, err := os.ReadDir(w.dir)
	if err != nil {
		t.Fatalf("read snapshot dir: %v", err)
	}
	if len(files) != 1 || !strings.HasPrefix(files[0].Name(), "question_") {
		t.Errorf("snapshot dir = %v, want one question_*.png", files)
	}
}

func TestPollSkipsAlreadyAnsweredQuestion(t *testing.T) {
	d := &fakeDriver{
		texts:    []string{"What is 2+2?"},
		selected: []bool{true},
	}
	w, _ := newTestWatcher(t, d, "", Options{})

	if err := w.Poll(); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if w.State() != StateIdle {
		t.Errorf("state = %v, want StateIdle", w.State())
	}
	if len(d.clicks) != 0 {
		t.Errorf("clicked %d times, want 0", len(d.clicks))
	}
	if w.lastFingerprint == "" {
		t.Error("fingerprint not recorded for answered question")
	}

	// The same question must not be reprocessed on later polls.
	if err := w.Poll(); err != nil {
		t.Fatalf("second Poll() error = %v", err)
	}
	if len(d.clicks) != 0 {
		t.Errorf("clicked %d times after repeat poll, want 0", len(d.clicks))
	}
}

func TestPollSameQuestionProcessedOnce(t *testing.T) {
	d := &fakeDriver{
		texts:    []string{"What is 2+2?"},
		selected: []bool{false, true},
		shot:     []byte("png"),
	}
	w, _ := newTestWatcher(t, d, "A\n", Options{})

	if err := w.Poll(); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if w.State() != StateAwaitingClear {
		t.Fatalf("state = %v, want StateAwaitingClear", w.State())
	}

	// Answer confirmed on the page; the watcher re-arms.
	if err := w.Poll(); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if w.State() != StateIdle {
		t.Fatalf("state = %v, want StateIdle after re-arm", w.State())
	}

	// Same question text still on the page; only the first click stands.
	if err := w.Poll(); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if len(d.clicks) != 1 {
		t.Errorf("clicked %d times, want exactly 1", len(d.clicks))
	}
}

func TestPollSubmitFailureReturnsToDetection(t *testing.T) {
	d := &fakeDriver{
		texts:    []string{"What is 2+2?"},
		selected: []bool{false},
		clickErr: []error{browser.ErrNotFound},
		shot:     []byte("png"),
	}
	w, out := newTestWatcher(t, d, "A\nA\n", Options{})

	if err := w.Poll(); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if w.State() != StateIdle {
		t.Fatalf("state = %v, want StateIdle after failed submit", w.State())
	}
	if w.lastFingerprint != "" {
		t.Error("fingerprint not cleared after failed submit")
	}
	// Two passes over five strategies.
	if len(d.clicks) != 10 {
		t.Errorf("click attempts = %d, want 10", len(d.clicks))
	}
	if !strings.Contains(out.String(), "Could not click answer A") {
		t.Errorf("failure notice missing:\n%s", out.String())
	}

	// Question still present and unanswered; the next poll retries it.
	d.clickErr = nil
	if err := w.Poll(); err != nil {
		t.Fatalf("retry Poll() error = %v", err)
	}
	if w.State() != StateAwaitingClear {
		t.Errorf("state = %v, want StateAwaitingClear after retry", w.State())
	}
}

func TestDecideRepromptsOnInvalidInput(t *testing.T) {
	d := &fakeDriver{
		texts:    []string{"Pick one"},
		selected: []bool{false},
		shot:     []byte("png"),
	}
	w, out := newTestWatcher(t, d, "x\n7\nb\n", Options{})

	if err := w.Poll(); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if w.State() != StateAwaitingClear {
		t.Fatalf("state = %v, want StateAwaitingClear", w.State())
	}
	if strings.Count(out.String(), "Invalid choice") != 2 {
		t.Errorf("expected two invalid-choice warnings:\n%s", out.String())
	}
	if want := "//button[normalize-space(.)='B']"; d.clicks[0].Sel != want {
		t.Errorf("clicked %q, want %q", d.clicks[0].Sel, want)
	}
}

func TestDecideEmptyInputAcceptsSuggestion(t *testing.T) {
	d := &fakeDriver{
		texts:    []string{"Pick one"},
		selected: []bool{false},
		shot:     []byte("png"),
	}
	sg := &fakeSuggester{suggestion: &suggest.Suggestion{Choice: "C", Confidence: 0.9, Reasoning: "looks right"}}
	w, out := newTestWatcher(t, d, "\n", Options{Suggester: sg})

	if err := w.Poll(); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if sg.calls != 1 {
		t.Errorf("suggester called %d times, want 1", sg.calls)
	}
	if want := "//button[normalize-space(.)='C']"; len(d.clicks) == 0 || d.clicks[0].Sel != want {
		t.Errorf("clicks = %v, want first click on %q", d.clicks, want)
	}
	if !strings.Contains(out.String(), "Using suggested answer: C") {
		t.Errorf("suggestion acceptance missing:\n%s", out.String())
	}
}

func TestDecideEmptyInputWithoutSuggestionReprompts(t *testing.T) {
	d := &fakeDriver{
		texts:    []string{"Pick one"},
		selected: []bool{false},
		shot:     []byte("png"),
	}
	w, out := newTestWatcher(t, d, "\nD\n", Options{})

	if err := w.Poll(); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if !strings.Contains(out.String(), "Invalid choice") {
		t.Errorf("expected re-prompt for empty input:\n%s", out.String())
	}
	if want := "//button[normalize-space(.)='D']"; d.clicks[0].Sel != want {
		t.Errorf("clicked %q, want %q", d.clicks[0].Sel, want)
	}
}

func TestSuggestionFailureDegradesToManual(t *testing.T) {
	d := &fakeDriver{
		texts:    []string{"Pick one"},
		selected: []bool{false},
		shot:     []byte("png"),
	}
	sg := &fakeSuggester{err: errors.New("api quota exceeded")}
	n := &fakeNotifier{}
	w, out := newTestWatcher(t, d, "A\n", Options{Suggester: sg, Notifier: n})

	if err := w.Poll(); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if w.State() != StateAwaitingClear {
		t.Fatalf("state = %v, want StateAwaitingClear", w.State())
	}
	if !strings.Contains(out.String(), "Suggestion unavailable") {
		t.Errorf("degradation notice missing:\n%s", out.String())
	}
	if n.calls != 1 {
		t.Errorf("notifier called %d times, want 1", n.calls)
	}
	if n.last != nil {
		t.Error("failed suggestion leaked into notification")
	}
}

func TestNotificationFailureDoesNotBlockAnswer(t *testing.T) {
	d := &fakeDriver{
		texts:    []string{"Pick one"},
		selected: []bool{false},
		shot:     []byte("png"),
	}
	n := &fakeNotifier{err: errors.New("smtp down")}
	w, out := newTestWatcher(t, d, "E\n", Options{Notifier: n})

	if err := w.Poll(); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if w.State() != StateAwaitingClear {
		t.Fatalf("state = %v, want StateAwaitingClear", w.State())
	}
	if !strings.Contains(out.String(), "Notification failed") {
		t.Errorf("notification warning missing:\n%s", out.String())
	}
}

func TestAwaitingClearRearmsWhenQuestionDisappears(t *testing.T) {
	d := &fakeDriver{
		texts:    []string{"Pick one", ""},
		textErrs: []error{nil, browser.ErrNotFound},
		selected: []bool{false, false},
		shot:     []byte("png"),
	}
	w, _ := newTestWatcher(t, d, "A\n", Options{})

	if err := w.Poll(); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if err := w.Poll(); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if w.State() != StateIdle {
		t.Errorf("state = %v, want StateIdle after question cleared", w.State())
	}
}

func TestAwaitingClearRearmsWhenQuestionReplaced(t *testing.T) {
	d := &fakeDriver{
		texts:    []string{"Pick one", "A different question"},
		selected: []bool{false, false},
		shot:     []byte("png"),
	}
	w, _ := newTestWatcher(t, d, "A\n", Options{})

	if err := w.Poll(); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if err := w.Poll(); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if w.State() != StateIdle {
		t.Errorf("state = %v, want StateIdle after question replaced", w.State())
	}
}

func TestPollEscalatesAfterSustainedReadFailures(t *testing.T) {
	d := &fakeDriver{
		texts:    []string{""},
		textErrs: []error{errors.New("renderer crashed")},
	}
	w, _ := newTestWatcher(t, d, "", Options{})

	var err error
	for i := 0; i < maxReadFailures; i++ {
		if err = w.Poll(); err != nil {
			break
		}
	}
	if !errors.Is(err, ErrMonitoringFailed) {
		t.Fatalf("Poll() = %v, want ErrMonitoringFailed", err)
	}
	if d.textCalls != maxReadFailures {
		t.Errorf("polled %d times before escalating, want %d", d.textCalls, maxReadFailures)
	}
}

func TestFingerprintStableAndDistinct(t *testing.T) {
	a1 := fingerprint("What is 2+2?")
	a2 := fingerprint("What is 2+2?")
	b := fingerprint("What is 3+3?")
	if a1 != a2 {
		t.Error("same text produced different fingerprints")
	}
	if a1 == b {
		t.Error("different texts produced the same fingerprint")
	}
	if len(a1) != 64 {
		t.Errorf("fingerprint length = %d, want 64", len(a1))
	}
}
