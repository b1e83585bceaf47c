package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AryaBuddha/iclicker-evade/internal/browser"
	"github.com/AryaBuddha/iclicker-evade/internal/logging"
	"github.com/AryaBuddha/iclicker-evade/internal/ui"
)

// ErrJoinFailed is returned when the joined-class page stops being readable
// for a sustained run of polls.
var ErrJoinFailed = errors.New("join failed")

const (
	// startedMarker is the literal text the portal shows once the
	// instructor opens the session.
	startedMarker = "Your instructor started class."

	// joinButtonPath is the structural position of the join control.
	joinButtonPath = "/html/body/app-root/ng-component/div/app-course/div/div/div[2]/button"

	// clickRetries bounds transient lookup retries within one poll cycle.
	clickRetries = 3

	// maxReadFailures is the run of consecutive whole-page read failures
	// that escalates to ErrJoinFailed.
	maxReadFailures = 12
)

// JoinWaiter polls the class page until the instructor starts the session,
// then clicks the join control. There is deliberately no timeout: the
// operator decides when to give up.
type JoinWaiter struct {
	driver   browser.Driver
	interval time.Duration
	spinner  *ui.Spinner
	log      *logging.Logger

	// Injection points for tests.
	sleep func(time.Duration)
	now   func() time.Time
}

// NewJoinWaiter builds a JoinWaiter polling at the given interval.
func NewJoinWaiter(driver browser.Driver, interval time.Duration, spinner *ui.Spinner, log *logging.Logger) *JoinWaiter {
	if log == nil {
		log = logging.NewDiscard()
	}
	return &JoinWaiter{
		driver:   driver,
		interval: interval,
		spinner:  spinner,
		log:      log,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// AwaitAndJoin blocks until the session is joined. Transient page errors are
// retried; only a sustained run of read failures escalates.
func (w *JoinWaiter) AwaitAndJoin() error {
	w.log.Info("waiting for class to start", "interval", w.interval.String())
	w.spinner.Start("Waiting for instructor to start class...")
	defer w.spinner.Stop()

	start := w.now()
	readFailures := 0
	for attempt := 1; ; attempt++ {
		elapsed := int(w.now().Sub(start).Seconds())
		w.spinner.Update(fmt.Sprintf("Waiting for instructor to start class... (elapsed: %ds, attempt: %d)", elapsed, attempt))

		body, err := w.driver.BodyText()
		if err != nil {
			readFailures++
			w.log.Warn("page read failed", "attempt", attempt, "consecutive", readFailures, "error", err)
			if readFailures >= maxReadFailures {
				return fmt.Errorf("%w: page unreadable for %d consecutive polls: %v", ErrJoinFailed, readFailures, err)
			}
			w.sleep(w.interval)
			continue
		}
		readFailures = 0

		if strings.Contains(body, startedMarker) {
			if w.clickJoin() {
				w.spinner.Stop()
				w.log.Info("joined class", "attempt", attempt, "elapsed_seconds", elapsed)
				return nil
			}
			// Marker present but the button was not clickable this
			// cycle; keep polling.
			w.log.Debug("start marker present but join control missing", "attempt", attempt)
		}

		w.sleep(w.interval)
	}
}

// clickJoin tries to activate the join control, retrying transient lookup
// failures a bounded number of times within this poll cycle.
func (w *JoinWaiter) clickJoin() bool {
	loc := browser.XPath(joinButtonPath)
	for i := 0; i < clickRetries; i++ {
		err := w.driver.Click(loc)
		if err == nil {
			return true
		}
		w.log.Debug("join click failed", "try", i+1, "error", err)
		if i < clickRetries-1 {
			w.sleep(time.Second)
		}
	}
	return false
}
