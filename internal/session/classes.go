// Package session handles everything between login and the joined class:
// scanning the course list, resolving which class to open, and waiting for
// the instructor to start the session.
package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AryaBuddha/iclicker-evade/internal/browser"
	"github.com/AryaBuddha/iclicker-evade/internal/logging"
)

// ErrNoClassAvailable is returned when the course page lists no classes.
var ErrNoClassAvailable = errors.New("no classes available")

// classListPath matches the course labels in the portal's Angular layout.
const classListPath = "//app-courses/main/div/ul/li/a/label"

// ClassEntry pairs a course's display name with the locator that opens it.
// Entries are valid only for the page state they were scanned from; Scan is
// re-run whenever the list is needed again.
type ClassEntry struct {
	Name    string
	Locator browser.Locator
}

// Scanner derives the list of available classes from the current page.
type Scanner struct {
	driver browser.Driver
	log    *logging.Logger
}

// NewScanner builds a Scanner. A nil logger discards records.
func NewScanner(driver browser.Driver, log *logging.Logger) *Scanner {
	if log == nil {
		log = logging.NewDiscard()
	}
	return &Scanner{driver: driver, log: log}
}

// Scan reads the course list from the page. The portal structure is tried
// first; generic label/link/button scans are the fallback for layout drift.
// Duplicate names keep their first occurrence.
func (s *Scanner) Scan() ([]ClassEntry, error) {
	names, err := s.driver.Texts(browser.XPath(classListPath))
	if err != nil {
		return nil, fmt.Errorf("scan class list: %w", err)
	}

	var entries []ClassEntry
	for _, name := range names {
		name = strings.TrimSpace(name)
		if len(name) < 2 {
			continue
		}
		entries = append(entries, ClassEntry{
			Name:    name,
			Locator: classLinkLocator(name),
		})
	}
	if len(entries) > 0 {
		return dedupe(entries), nil
	}

	s.log.Debug("portal class structure empty, falling back to generic scan")
	for _, tag := range []string{"label", "a", "button"} {
		texts, err := s.driver.Texts(browser.CSS(tag))
		if err != nil {
			continue
		}
		for _, text := range texts {
			text = strings.TrimSpace(text)
			if len(text) < 4 {
				continue
			}
			entries = append(entries, ClassEntry{
				Name:    text,
				Locator: browser.XPath(fmt.Sprintf("//%s[normalize-space(.)=%s]", tag, xpathLiteral(text))),
			})
		}
	}
	return dedupe(entries), nil
}

// Names returns just the display names, in scan order.
func Names(entries []ClassEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Open clicks through to the class with the given display name. Lookup
// strategies run in order; the first locator that resolves wins.
func (s *Scanner) Open(name string) error {
	lit := xpathLiteral(name)
	strategies := []browser.Locator{
		// Portal structure, exact label text.
		browser.XPath(fmt.Sprintf("//app-courses/main/div/ul/li/a[label[normalize-space(.)=%s]]", lit)),
		// Portal structure, label containing the name.
		browser.XPath(fmt.Sprintf("//app-courses/main/div/ul/li/a[label[contains(., %s)]]", lit)),
		// Generic fallbacks for layout drift.
		browser.XPath(fmt.Sprintf("//a[contains(., %s)]", lit)),
		browser.XPath(fmt.Sprintf("//button[contains(., %s)]", lit)),
		browser.XPath(fmt.Sprintf("//label[contains(., %s)]", lit)),
	}

	for _, loc := range strategies {
		err := s.driver.Click(loc)
		if err == nil {
			s.log.Info("class opened", "class", name, "locator", loc.Sel)
			return nil
		}
		if !errors.Is(err, browser.ErrNotFound) {
			s.log.Warn("class open strategy failed", "locator", loc.Sel, "error", err)
		}
	}
	return fmt.Errorf("open class %q: %w", name, browser.ErrNotFound)
}

func classLinkLocator(name string) browser.Locator {
	return browser.XPath(fmt.Sprintf(
		"//app-courses/main/div/ul/li/a[label[normalize-space(.)=%s]]", xpathLiteral(name)))
}

func dedupe(entries []ClassEntry) []ClassEntry {
	seen := make(map[string]bool, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		out = append(out, e)
	}
	return out
}

// xpathLiteral quotes s as an XPath string literal. Names containing both
// quote characters need concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+part+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
