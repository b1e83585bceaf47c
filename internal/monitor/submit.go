package monitor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AryaBuddha/iclicker-evade/internal/browser"
)

// ErrAnswerControlNotFound is returned when no lookup strategy resolves a
// control for the chosen letter.
var ErrAnswerControlNotFound = errors.New("answer control not found")

// AnswerLocators returns the lookup strategies for the letter's control, in
// priority order. Adding or reordering strategies is a data change.
func AnswerLocators(letter string) []browser.Locator {
	lower := strings.ToLower(letter)
	return []browser.Locator{
		// Button whose visible text is exactly the letter.
		browser.XPath(fmt.Sprintf("//button[normalize-space(.)='%s']", letter)),
		// Portal class-name convention.
		browser.CSS(fmt.Sprintf("button.answer-%s, div.answer-%s button", lower, lower)),
		// Accessibility label.
		browser.XPath(fmt.Sprintf("//button[@aria-label='%s']", letter)),
		// Input controls carrying the letter as value or label.
		browser.XPath(fmt.Sprintf("//input[@value='%s' or @aria-label='%s']", letter, letter)),
		// Last resort: any clickable element whose text contains the letter.
		browser.XPath(fmt.Sprintf("//*[contains(text(), '%s')][self::button or self::a or self::div[@role='button']]", letter)),
	}
}

// submit activates the control for the chosen letter. The strategy chain is
// run twice before giving up; a failed submission is logged and the question
// is handed back to detection, never answered twice.
func (w *Watcher) submit(letter string) bool {
	out := w.prompter.Out()
	fmt.Fprintf(out, "🖱️  Clicking answer %s...\n", letter)

	for pass := 1; pass <= 2; pass++ {
		for i, loc := range AnswerLocators(letter) {
			err := w.driver.Click(loc)
			if err == nil {
				w.log.Info("answer submitted", "letter", letter, "strategy", i+1, "pass", pass)
				fmt.Fprintf(out, "✅ Answer %s clicked.\n", letter)
				return true
			}
			if !errors.Is(err, browser.ErrNotFound) {
				w.log.Debug("answer click strategy failed", "strategy", i+1, "error", err)
			}
		}
		w.log.Warn("no answer control found", "letter", letter, "pass", pass, "error", ErrAnswerControlNotFound)
	}

	fmt.Fprintf(out, "❌ Could not click answer %s automatically. Click it in the browser.\n", letter)
	return false
}
