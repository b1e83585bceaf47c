// Package browser abstracts the page-automation substrate. The core
// components talk to the Driver interface; the chromedp backend in this
// package is the only implementation that touches a real browser.
package browser

import "errors"

// ErrNotFound is returned when a locator resolves to no element. Callers
// treat it as a transient condition: pages re-render and elements come and
// go between polls.
var ErrNotFound = errors.New("element not found")

// By selects the locator language.
type By int

const (
	ByCSS By = iota
	ByXPath
)

// Locator identifies elements on the current page. Locators are re-resolved
// on every call; handles are never cached across page changes.
type Locator struct {
	Sel string
	By  By
}

// CSS builds a CSS selector locator.
func CSS(sel string) Locator { return Locator{Sel: sel, By: ByCSS} }

// XPath builds an XPath locator.
func XPath(sel string) Locator { return Locator{Sel: sel, By: ByXPath} }

// Driver is the capability surface the monitoring core needs from a page.
// Every method may fail transiently; callers own the retry policy.
type Driver interface {
	// Navigate loads url and waits for the page to become ready.
	Navigate(url string) error

	// BodyText returns the visible text of the whole page.
	BodyText() (string, error)

	// Text returns the visible text of the first element matching loc,
	// or ErrNotFound.
	Text(loc Locator) (string, error)

	// Texts returns the visible text of every element matching loc, in
	// document order. A locator matching nothing yields an empty slice,
	// not an error.
	Texts(loc Locator) ([]string, error)

	// Exists reports whether loc matches at least one element.
	Exists(loc Locator) (bool, error)

	// Click activates the first element matching loc, scrolling it into
	// view first. Returns ErrNotFound when nothing matches.
	Click(loc Locator) error

	// SendKeys types text into the first element matching loc.
	SendKeys(loc Locator, text string) error

	// SelectOption picks the option with the given visible text in the
	// first <select> matching loc.
	SelectOption(loc Locator, visibleText string) error

	// FullScreenshot captures the entire page (not just the viewport) as
	// PNG bytes.
	FullScreenshot() ([]byte, error)

	// Screenshot captures the current viewport as PNG bytes. Used as the
	// fallback when a full-page capture fails.
	Screenshot() ([]byte, error)

	// Close shuts the browser down.
	Close() error
}
