// Package browser wraps chromedp behind the small set of page operations
// the diocese navigators use: navigation, selector waits, text extraction,
// form filling, and clicks. Selectors starting with // are evaluated as
// XPath, everything else as CSS.
package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const (
	sessionUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// opTimeout bounds element-level operations so a vanished selector
	// cannot stall the whole run.
	opTimeout = 10 * time.Second
)

// Session owns one Chrome process shared by the whole run. Tabs are opened
// per record through OpenPage.
type Session struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewSession launches Chrome. The CHROME_PATH environment variable
// overrides the binary location.
func NewSession(ctx context.Context, headless bool) (*Session, error) {
	opts := chromedp.DefaultExecAllocatorOptions[:]
	if chromePath := os.Getenv("CHROME_PATH"); chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}
	opts = append(opts, chromedp.UserAgent(sessionUserAgent))
	if headless {
		opts = append(opts,
			chromedp.Headless,
			chromedp.DisableGPU,
			chromedp.NoSandbox,
		)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser now so launch problems surface here instead of
	// in the middle of the first record.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	return &Session{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close shuts the browser down.
func (s *Session) Close() {
	s.browserCancel()
	s.allocCancel()
}

// OpenPage opens a fresh tab. The caller must Close it.
func (s *Session) OpenPage() (*Page, error) {
	tabCtx, cancel := chromedp.NewContext(s.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("opening tab: %w", err)
	}
	return &Page{ctx: tabCtx, cancel: cancel}, nil
}

// Page is a single browser tab.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Close closes the tab.
func (p *Page) Close() {
	p.cancel()
}

// Navigate loads the URL, waiting at most timeout for the navigation.
func (p *Page) Navigate(url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// WaitReady waits until the document body is attached.
func (p *Page) WaitReady(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("waiting for page: %w", err)
	}
	return nil
}

// Settle sleeps inside the tab, giving scripts time to render.
func (p *Page) Settle(d time.Duration) error {
	return chromedp.Run(p.ctx, chromedp.Sleep(d))
}

// Exists reports whether the CSS selector matches at least one element
// right now, without waiting.
func (p *Page) Exists(sel string) bool {
	ctx, cancel := context.WithTimeout(p.ctx, opTimeout)
	defer cancel()
	var found bool
	js := fmt.Sprintf("document.querySelector(%q) !== null", sel)
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &found)); err != nil {
		return false
	}
	return found
}

// WaitVisible waits until the selector matches a visible element.
func (p *Page) WaitVisible(sel string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.WaitVisible(sel, matchOption(sel))); err != nil {
		return fmt.Errorf("waiting for %s: %w", sel, err)
	}
	return nil
}

// Text returns the text content of the first element matching the
// selector.
func (p *Page) Text(sel string) (string, error) {
	ctx, cancel := context.WithTimeout(p.ctx, opTimeout)
	defer cancel()
	var text string
	if err := chromedp.Run(ctx, chromedp.Text(sel, &text, matchOption(sel))); err != nil {
		return "", fmt.Errorf("reading text of %s: %w", sel, err)
	}
	return text, nil
}

// Texts returns the rendered text of every element matching the CSS
// selector. Elements that match nothing yield an empty slice.
func (p *Page) Texts(sel string) ([]string, error) {
	ctx, cancel := context.WithTimeout(p.ctx, opTimeout)
	defer cancel()
	var texts []string
	js := fmt.Sprintf("Array.from(document.querySelectorAll(%q)).map(e => e.innerText)", sel)
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &texts)); err != nil {
		return nil, fmt.Errorf("reading texts of %s: %w", sel, err)
	}
	return texts, nil
}

// BodyText returns the text content of the whole document body.
func (p *Page) BodyText() (string, error) {
	return p.Text("body")
}

// Fill clears the input matching the selector and types the value into it.
func (p *Page) Fill(sel, value string) error {
	ctx, cancel := context.WithTimeout(p.ctx, opTimeout)
	defer cancel()
	err := chromedp.Run(ctx,
		chromedp.Clear(sel, matchOption(sel)),
		chromedp.SendKeys(sel, value, matchOption(sel)),
	)
	if err != nil {
		return fmt.Errorf("filling %s: %w", sel, err)
	}
	return nil
}

// PressEnter sends the Enter key to the focused element.
func (p *Page) PressEnter() error {
	ctx, cancel := context.WithTimeout(p.ctx, opTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.KeyEvent(kb.Enter)); err != nil {
		return fmt.Errorf("pressing enter: %w", err)
	}
	return nil
}

// Click clicks the first element matching the selector.
func (p *Page) Click(sel string) error {
	ctx, cancel := context.WithTimeout(p.ctx, opTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Click(sel, matchOption(sel))); err != nil {
		return fmt.Errorf("clicking %s: %w", sel, err)
	}
	return nil
}

func matchOption(sel string) chromedp.QueryOption {
	if strings.HasPrefix(sel, "//") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}
