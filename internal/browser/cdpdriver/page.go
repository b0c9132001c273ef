package cdpdriver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
	"github.com/xkilldash9x/crosscheck-cli/internal/observability"
)

// Context is one CDP browser context.
type Context struct {
	id     string
	bcID   cdp.BrowserContextID
	driver *Driver
	logger *zap.Logger

	mu     sync.Mutex
	pages  []*Page
	closed bool
}

var _ browser.BrowserContext = (*Context)(nil)

func (c *Context) ID() string { return c.id }

func (c *Context) NewPage(ctx context.Context) (browser.Page, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, browser.ErrClosed
	}

	id, err := c.driver.newTarget(ctx, c.bcID)
	if err != nil {
		return nil, fmt.Errorf("failed to create target: %w", err)
	}
	p, err := c.adopt(ctx, id)
	if err != nil {
		c.driver.closeTarget(id)
		return nil, err
	}
	return p, nil
}

// adopt attaches to a target that already exists in this context.
func (c *Context) adopt(ctx context.Context, id target.ID) (*Page, error) {
	tabCtx, cancel, err := c.driver.attach(ctx, id)
	if err != nil {
		return nil, err
	}
	p := &Page{
		targetID: id,
		tabCtx:   tabCtx,
		cancel:   cancel,
		owner:    c,
		url:      "about:blank",
		logger:   c.logger.With(zap.String(observability.KeyPage, string(id))),
	}
	chromedp.ListenTarget(tabCtx, p.onEvent)

	c.mu.Lock()
	c.pages = append(c.pages, p)
	c.mu.Unlock()
	return p, nil
}

func (c *Context) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pages := c.pages
	c.pages = nil
	c.mu.Unlock()

	for _, p := range pages {
		p.release()
	}
	if err := c.driver.disposeContext(c.bcID); err != nil {
		return fmt.Errorf("failed to dispose browser context: %w", err)
	}
	c.logger.Debug("Browser context disposed.")
	return nil
}

// Page is one CDP target driven through its chromedp tab context.
type Page struct {
	targetID target.ID
	tabCtx   context.Context
	cancel   context.CancelFunc
	owner    *Context
	logger   *zap.Logger

	mu     sync.Mutex
	url    string
	closed bool
}

var _ browser.Page = (*Page)(nil)

func (p *Page) onEvent(ev interface{}) {
	switch e := ev.(type) {
	case *cdppage.EventFrameNavigated:
		if e.Frame.ParentID == "" {
			p.mu.Lock()
			p.url = e.Frame.URL
			p.mu.Unlock()
		}
	case *target.EventDetachedFromTarget:
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
	}
}

func (p *Page) ID() string { return string(p.targetID) }

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed || p.tabCtx.Err() != nil
}

// run executes actions on the tab, bounded by ctx and the configured action timeout.
func (p *Page) run(ctx context.Context, action, selector string, actions ...chromedp.Action) error {
	if p.IsClosed() {
		return browser.WrapAction(action, p.ID(), selector, browser.ErrClosed)
	}
	cfg := p.owner.driver.cfg
	opCtx, cancel := context.WithTimeout(ctx, cfg.ActionTimeout)
	defer cancel()

	if err := p.owner.driver.limiter.Wait(opCtx); err != nil {
		return browser.WrapAction(action, p.ID(), selector, err)
	}

	runCtx, stop := browser.CombineContext(p.tabCtx, opCtx)
	defer stop()

	p.logger.Debug("Running action.", zap.String("action", action), zap.String("selector", selector))
	err := chromedp.Run(runCtx, actions...)
	if err != nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", browser.ErrTimeout, err)
	}
	return browser.WrapAction(action, p.ID(), selector, err)
}

func (p *Page) Goto(ctx context.Context, url string) error {
	err := p.run(ctx, "goto", url, chromedp.Navigate(url))
	if err == nil {
		p.mu.Lock()
		p.url = url
		p.mu.Unlock()
	}
	return err
}

func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	err := p.run(ctx, "title", "", chromedp.Title(&title))
	return title, err
}

func (p *Page) Click(ctx context.Context, selector string) error {
	return p.run(ctx, "click", selector, chromedp.Click(selector, chromedp.ByQuery))
}

func (p *Page) Fill(ctx context.Context, selector, value string) error {
	return p.run(ctx, "fill", selector,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

var namedKeys = map[string]string{
	"Enter":     kb.Enter,
	"Tab":       kb.Tab,
	"Escape":    kb.Escape,
	"Backspace": kb.Backspace,
}

func (p *Page) Press(ctx context.Context, selector, key string) error {
	if k, ok := namedKeys[key]; ok {
		key = k
	}
	return p.run(ctx, "press", selector, chromedp.SendKeys(selector, key, chromedp.ByQuery))
}

// SetChecked toggles through the DOM so that visually hidden inputs behind
// styled switches still receive the click.
func (p *Page) SetChecked(ctx context.Context, selector string, checked bool) error {
	const script = `(function(sel, want) {
	const el = document.querySelector(sel);
	if (!el) { return false; }
	if (el.checked !== want) { el.click(); }
	return true;
})(%q, %t)`
	var found bool
	err := p.run(ctx, "set_checked", selector,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(script, selector, checked), &found),
	)
	if err == nil && !found {
		return browser.WrapAction("set_checked", p.ID(), selector, browser.ErrNotFound)
	}
	return err
}

func (p *Page) SelectOption(ctx context.Context, selector, value string) error {
	const script = `(function(sel, value) {
	const el = document.querySelector(sel);
	if (!el) { return false; }
	el.value = value;
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})(%q, %q)`
	var found bool
	err := p.run(ctx, "select_option", selector,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(script, selector, value), &found),
	)
	if err == nil && !found {
		return browser.WrapAction("select_option", p.ID(), selector, browser.ErrNotFound)
	}
	return err
}

func (p *Page) Text(ctx context.Context, selector string) (string, error) {
	var text string
	err := p.run(ctx, "text", selector, chromedp.TextContent(selector, &text, chromedp.ByQuery))
	return text, err
}

func (p *Page) Attribute(ctx context.Context, selector, name string) (string, error) {
	var (
		value string
		ok    bool
	)
	err := p.run(ctx, "attribute", selector, chromedp.AttributeValue(selector, name, &value, &ok, chromedp.ByQuery))
	return value, err
}

// IsVisible checks the current DOM without waiting for the selector.
func (p *Page) IsVisible(ctx context.Context, selector string) (bool, error) {
	const script = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el) { return false; }
	const style = window.getComputedStyle(el);
	const rect = el.getBoundingClientRect();
	return style.visibility !== 'hidden' && style.display !== 'none' && rect.width > 0 && rect.height > 0;
})(%q)`
	var visible bool
	err := p.run(ctx, "is_visible", selector, chromedp.Evaluate(fmt.Sprintf(script, selector), &visible))
	return visible, err
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	var n int
	err := p.run(ctx, "count", selector,
		chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%q).length`, selector), &n))
	return n, err
}

func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	return p.run(ctx, "wait_visible", selector, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *Page) WaitLoaded(ctx context.Context) error {
	var complete bool
	return p.run(ctx, "wait_loaded", "",
		chromedp.Poll(`document.readyState === "complete"`, &complete))
}

// ClickForNewPage clicks selector and attaches to the tab it opens.
func (p *Page) ClickForNewPage(ctx context.Context, selector string) (browser.Page, error) {
	opened := chromedp.WaitNewTarget(p.tabCtx, func(info *target.Info) bool {
		return info.OpenerID == p.targetID && info.Type == "page"
	})
	if err := p.Click(ctx, selector); err != nil {
		return nil, err
	}

	cfg := p.owner.driver.cfg
	waitCtx, cancel := context.WithTimeout(ctx, cfg.ActionTimeout)
	defer cancel()

	var id target.ID
	select {
	case id = <-opened:
	case <-waitCtx.Done():
		return nil, browser.WrapAction("click_for_new_page", p.ID(), selector, waitCtx.Err())
	}

	popup, err := p.owner.adopt(waitCtx, id)
	if err != nil {
		return nil, browser.WrapAction("click_for_new_page", p.ID(), selector, err)
	}
	if err := popup.WaitLoaded(ctx); err != nil {
		return nil, err
	}
	return popup, nil
}

func (p *Page) release() {
	p.mu.Lock()
	already := p.closed
	p.closed = true
	p.mu.Unlock()
	if !already {
		p.owner.driver.closeTarget(p.targetID)
	}
	p.cancel()
}

func (p *Page) Close(ctx context.Context) error {
	p.release()
	p.logger.Debug("Page closed.")
	return nil
}
