// Package auth performs the institution-specific login flow. The rest of
// the system only sees the Authenticator interface; each supported school
// provides an implementation.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/AryaBuddha/iclicker-evade/internal/browser"
)

// ErrAuthFailed is returned when a login step cannot complete.
var ErrAuthFailed = errors.New("authentication failed")

// Authenticator logs a student into the portal and leaves the browser on
// the course selection page. The returned access code is informational.
type Authenticator interface {
	Login(username, password string) (accessCode string, err error)
}

// waitFor retries fn at the given interval until it succeeds or attempts
// run out. Transient element lookups during page transitions are the norm,
// not the exception.
func waitFor(attempts int, interval time.Duration, sleep func(time.Duration), fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if !errors.Is(err, browser.ErrNotFound) {
			return err
		}
		sleep(interval)
	}
	return fmt.Errorf("gave up after %d attempts: %w", attempts, err)
}
