package session

import (
	"github.com/AryaBuddha/iclicker-evade/internal/browser"
)

// fakeDriver scripts page reads per poll for waiter and scanner tests.
type fakeDriver struct {
	// bodyTexts is consumed one entry per BodyText call; the last entry
	// repeats once exhausted.
	bodyTexts []string
	bodyErrs  []error
	bodyCalls int

	texts    map[string][]string
	textErr  error
	exists   map[string]bool
	clickErr []error // consumed per Click call; last repeats
	clicks   []browser.Locator
}

func (d *fakeDriver) Navigate(url string) error { return nil }

func (d *fakeDriver) BodyText() (string, error) {
	i := d.bodyCalls
	d.bodyCalls++
	if i >= len(d.bodyTexts) {
		i = len(d.bodyTexts) - 1
	}
	if i < len(d.bodyErrs) && d.bodyErrs[i] != nil {
		return "", d.bodyErrs[i]
	}
	if i < 0 {
		return "", nil
	}
	return d.bodyTexts[i], nil
}

func (d *fakeDriver) Text(loc browser.Locator) (string, error) {
	if d.textErr != nil {
		return "", d.textErr
	}
	if texts, ok := d.texts[loc.Sel]; ok && len(texts) > 0 {
		return texts[0], nil
	}
	return "", browser.ErrNotFound
}

func (d *fakeDriver) Texts(loc browser.Locator) ([]string, error) {
	if d.textErr != nil {
		return nil, d.textErr
	}
	return d.texts[loc.Sel], nil
}

func (d *fakeDriver) Exists(loc browser.Locator) (bool, error) {
	return d.exists[loc.Sel], nil
}

func (d *fakeDriver) Click(loc browser.Locator) error {
	i := len(d.clicks)
	d.clicks = append(d.clicks, loc)
	if len(d.clickErr) == 0 {
		return nil
	}
	if i >= len(d.clickErr) {
		i = len(d.clickErr) - 1
	}
	return d.clickErr[i]
}

func (d *fakeDriver) SendKeys(loc browser.Locator, text string) error        { return nil }
func (d *fakeDriver) SelectOption(loc browser.Locator, visible string) error { return nil }
func (d *fakeDriver) FullScreenshot() ([]byte, error)                        { return nil, nil }
func (d *fakeDriver) Screenshot() ([]byte, error)                            { return nil, nil }
func (d *fakeDriver) Close() error                                           { return nil }

var _ browser.Driver = (*fakeDriver)(nil)
