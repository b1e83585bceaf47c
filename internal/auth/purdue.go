package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/AryaBuddha/iclicker-evade/internal/browser"
	"github.com/AryaBuddha/iclicker-evade/internal/logging"
	"github.com/AryaBuddha/iclicker-evade/internal/ui"
)

const (
	loginURL       = "https://student.iclicker.com/#/login"
	purdueCampus   = "Purdue University West Lafayette/Indianapolis"
	lookupAttempts = 10
	lookupInterval = time.Second
)

// Fixed structural paths through the portal and SSO pages.
const (
	initialButtonPath  = "/html/body/div/div[2]/div/div[2]/button"
	campusDropdownPath = "/html/body/app-root/app-login/div[2]/main/div[4]/div[2]/div/select"
	campusContinuePath = "/html/body/app-root/app-login/div[2]/main/div[4]/div[2]/div/button"
	usernameFieldPath  = "/html/body/div/main/section/div/div/div/div/div/div/form/fieldset/div[1]/input"
	passwordFieldPath  = "/html/body/div/main/section/div/div/div/div/div/div/form/fieldset/div[2]/input"
	loginButtonPath    = "/html/body/div/main/section/div/div/div/div/div/div/form/fieldset/div[3]/button[2]"
	accessCodePath     = "/html/body/div/div/div[1]/div/div[2]/div[3]"
)

// Purdue logs in through the Purdue SSO and reads back the access code.
type Purdue struct {
	driver   browser.Driver
	prompter *ui.Prompter
	log      *logging.Logger
	sleep    func(time.Duration)
}

// NewPurdue builds the Purdue login flow.
func NewPurdue(driver browser.Driver, prompter *ui.Prompter, log *logging.Logger) *Purdue {
	if log == nil {
		log = logging.NewDiscard()
	}
	return &Purdue{driver: driver, prompter: prompter, log: log, sleep: time.Sleep}
}

// Login drives the portal to the course selection page. It pauses for the
// operator to acknowledge the access code (and complete any second factor in
// the browser) before returning.
func (p *Purdue) Login(username, password string) (string, error) {
	out := p.prompter.Out()

	fmt.Fprintln(out, "🏫 Navigating to the student portal...")
	if err := p.driver.Navigate(loginURL); err != nil {
		return "", fmt.Errorf("%w: open login page: %v", ErrAuthFailed, err)
	}

	if err := p.selectCampus(); err != nil {
		return "", err
	}

	fmt.Fprintln(out, "🔐 Signing in...")
	if err := p.signIn(username, password); err != nil {
		return "", err
	}

	code, err := p.readAccessCode()
	if err != nil {
		return "", err
	}
	fmt.Fprintf(out, "\n🎉 Access code: %s\n", code)
	p.log.Info("login complete", "access_code", code)

	if err := p.prompter.Confirm("Type 'y' to continue to class selection: ", "y"); err != nil {
		return "", err
	}
	// The course list populates a beat after the code page confirms.
	p.sleep(3 * time.Second)
	return code, nil
}

func (p *Purdue) selectCampus() error {
	if err := p.click(initialButtonPath); err != nil {
		return fmt.Errorf("%w: initial sign-in button: %v", ErrAuthFailed, err)
	}

	err := waitFor(lookupAttempts, lookupInterval, p.sleep, func() error {
		return p.driver.SelectOption(browser.XPath(campusDropdownPath), purdueCampus)
	})
	if err != nil {
		return fmt.Errorf("%w: campus dropdown: %v", ErrAuthFailed, err)
	}

	if err := p.click(campusContinuePath); err != nil {
		return fmt.Errorf("%w: campus continue button: %v", ErrAuthFailed, err)
	}
	return nil
}

func (p *Purdue) signIn(username, password string) error {
	err := waitFor(lookupAttempts, lookupInterval, p.sleep, func() error {
		return p.driver.SendKeys(browser.XPath(usernameFieldPath), username)
	})
	if err != nil {
		return fmt.Errorf("%w: username field: %v", ErrAuthFailed, err)
	}
	if err := p.driver.SendKeys(browser.XPath(passwordFieldPath), password); err != nil {
		return fmt.Errorf("%w: password field: %v", ErrAuthFailed, err)
	}
	if err := p.click(loginButtonPath); err != nil {
		return fmt.Errorf("%w: login button: %v", ErrAuthFailed, err)
	}
	return nil
}

func (p *Purdue) readAccessCode() (string, error) {
	var code string
	err := waitFor(lookupAttempts*2, lookupInterval, p.sleep, func() error {
		text, err := p.driver.Text(browser.XPath(accessCodePath))
		if err != nil {
			return err
		}
		code = strings.TrimSpace(text)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: access code not found: %v", ErrAuthFailed, err)
	}
	return code, nil
}

func (p *Purdue) click(xpath string) error {
	return waitFor(lookupAttempts, lookupInterval, p.sleep, func() error {
		return p.driver.Click(browser.XPath(xpath))
	})
}

var _ Authenticator = (*Purdue)(nil)
