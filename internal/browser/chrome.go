package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// webauthnShim hides the WebAuthn API so the portal cannot trigger a native
// passkey sheet mid-login.
const webauthnShim = `(() => {
	try { Object.defineProperty(window, 'PublicKeyCredential', { value: undefined }); } catch (e) {}
	const shim = {
		get: () => Promise.reject(new DOMException('NotAllowedError', 'NotAllowedError')),
		create: () => Promise.reject(new DOMException('NotAllowedError', 'NotAllowedError')),
		preventSilentAccess: () => Promise.resolve(),
	};
	try { Object.defineProperty(navigator, 'credentials', { get() { return shim; } }); } catch (e) {}
})();`

// Options configures the Chrome backend.
type Options struct {
	Headless bool
	// OpTimeout bounds each individual driver call. Zero means 15s.
	OpTimeout time.Duration
	// NavTimeout bounds page loads. Zero means 60s.
	NavTimeout time.Duration
}

// Chrome is a chromedp-backed Driver.
type Chrome struct {
	ctx        context.Context
	cancels    []context.CancelFunc
	opTimeout  time.Duration
	navTimeout time.Duration
}

// NewChrome launches a Chrome instance configured for the iClicker portal:
// fixed window size for stable screenshots, automation-detection flags off,
// WebAuthn disabled on every new document.
func NewChrome(opts Options) (*Chrome, error) {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 15 * time.Second
	}
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 60 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("disable-features", "VizDisplayCompositor"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	c := &Chrome{
		ctx:        browserCtx,
		cancels:    []context.CancelFunc{browserCancel, allocCancel},
		opTimeout:  opts.OpTimeout,
		navTimeout: opts.NavTimeout,
	}

	// Start the browser and install the WebAuthn shim for all documents.
	err := chromedp.Run(browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(webauthnShim).Do(ctx)
			return err
		}),
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	return c, nil
}

func (c *Chrome) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate loads url and waits for the body to exist.
func (c *Chrome) Navigate(url string) error {
	return c.run(c.navTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// locatorExpr builds a JS expression evaluating to the element list for loc.
func locatorExpr(loc Locator) string {
	sel, _ := json.Marshal(loc.Sel)
	if loc.By == ByXPath {
		return fmt.Sprintf(`(function(){
			var r = document.evaluate(%s, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
			var out = [];
			for (var i = 0; i < r.snapshotLength; i++) { out.push(r.snapshotItem(i)); }
			return out;
		})()`, sel)
	}
	return fmt.Sprintf(`Array.prototype.slice.call(document.querySelectorAll(%s))`, sel)
}

// BodyText returns the visible text of the whole page.
func (c *Chrome) BodyText() (string, error) {
	var text string
	err := c.run(c.opTimeout,
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text),
	)
	if err != nil {
		return "", fmt.Errorf("read page text: %w", err)
	}
	return text, nil
}

// Text returns the visible text of the first element matching loc.
func (c *Chrome) Text(loc Locator) (string, error) {
	expr := fmt.Sprintf(`(function(){
		var els = %s;
		if (els.length === 0) { return null; }
		return els[0].innerText || els[0].textContent || "";
	})()`, locatorExpr(loc))

	var text *string
	if err := c.run(c.opTimeout, chromedp.Evaluate(expr, &text)); err != nil {
		return "", fmt.Errorf("read text %q: %w", loc.Sel, err)
	}
	if text == nil {
		return "", ErrNotFound
	}
	return *text, nil
}

// Texts returns the visible text of every element matching loc.
func (c *Chrome) Texts(loc Locator) ([]string, error) {
	expr := fmt.Sprintf(`(function(){
		var els = %s;
		return els.map(function(el){ return el.innerText || el.textContent || ""; });
	})()`, locatorExpr(loc))

	var texts []string
	if err := c.run(c.opTimeout, chromedp.Evaluate(expr, &texts)); err != nil {
		return nil, fmt.Errorf("read texts %q: %w", loc.Sel, err)
	}
	return texts, nil
}

// Exists reports whether loc matches at least one element.
func (c *Chrome) Exists(loc Locator) (bool, error) {
	expr := fmt.Sprintf(`(%s).length > 0`, locatorExpr(loc))
	var found bool
	if err := c.run(c.opTimeout, chromedp.Evaluate(expr, &found)); err != nil {
		return false, fmt.Errorf("check %q: %w", loc.Sel, err)
	}
	return found, nil
}

// Click scrolls the first matching element into view and clicks it via JS.
// The portal's Angular handlers respond to synthetic clicks, and a JS click
// avoids flaky coordinate-based input on elements mid-animation.
func (c *Chrome) Click(loc Locator) error {
	expr := fmt.Sprintf(`(function(){
		var els = %s;
		if (els.length === 0) { return false; }
		els[0].scrollIntoView(true);
		els[0].click();
		return true;
	})()`, locatorExpr(loc))

	var clicked bool
	if err := c.run(c.opTimeout, chromedp.Evaluate(expr, &clicked)); err != nil {
		return fmt.Errorf("click %q: %w", loc.Sel, err)
	}
	if !clicked {
		return ErrNotFound
	}
	return nil
}

// SendKeys types text into the first element matching loc.
func (c *Chrome) SendKeys(loc Locator, text string) error {
	by := chromedp.ByQuery
	if loc.By == ByXPath {
		by = chromedp.BySearch
	}
	err := c.run(c.opTimeout, chromedp.SendKeys(loc.Sel, text, by))
	if err != nil {
		return fmt.Errorf("send keys to %q: %w", loc.Sel, err)
	}
	return nil
}

// SelectOption picks the option with the given visible text in the first
// <select> matching loc and fires a change event for the page's framework.
func (c *Chrome) SelectOption(loc Locator, visibleText string) error {
	want, _ := json.Marshal(visibleText)
	expr := fmt.Sprintf(`(function(){
		var els = %s;
		if (els.length === 0) { return false; }
		var sel = els[0];
		for (var i = 0; i < sel.options.length; i++) {
			if (sel.options[i].text.trim() === %s) {
				sel.selectedIndex = i;
				sel.dispatchEvent(new Event('change', { bubbles: true }));
				return true;
			}
		}
		return false;
	})()`, locatorExpr(loc), want)

	var ok bool
	if err := c.run(c.opTimeout, chromedp.Evaluate(expr, &ok)); err != nil {
		return fmt.Errorf("select option in %q: %w", loc.Sel, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// FullScreenshot captures the entire page as PNG bytes.
func (c *Chrome) FullScreenshot() ([]byte, error) {
	var buf []byte
	if err := c.run(c.opTimeout, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, fmt.Errorf("full screenshot: %w", err)
	}
	return buf, nil
}

// Screenshot captures the current viewport as PNG bytes.
func (c *Chrome) Screenshot() ([]byte, error) {
	var buf []byte
	if err := c.run(c.opTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

// Close shuts the browser down and releases the allocator.
func (c *Chrome) Close() error {
	for _, cancel := range c.cancels {
		cancel()
	}
	return nil
}

var _ Driver = (*Chrome)(nil)
