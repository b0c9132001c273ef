package pwdriver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
	"github.com/xkilldash9x/crosscheck-cli/internal/observability"
)

// Context wraps a playwright.BrowserContext.
type Context struct {
	id            string
	bctx          playwright.BrowserContext
	actionTimeout time.Duration
	logger        *zap.Logger

	mu     sync.Mutex
	closed bool
}

var _ browser.BrowserContext = (*Context)(nil)

// ID implements browser.BrowserContext.
func (c *Context) ID() string { return c.id }

// NewPage implements browser.BrowserContext.
func (c *Context) NewPage(ctx context.Context) (browser.Page, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, browser.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := c.bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", translate(err))
	}
	return c.wrap(p), nil
}

func (c *Context) wrap(p playwright.Page) *Page {
	id := uuid.New().String()
	return &Page{
		id:            id,
		page:          p,
		owner:         c,
		actionTimeout: c.actionTimeout,
		logger:        c.logger.With(zap.String(observability.KeyPage, id)),
	}
}

// Close implements browser.BrowserContext.
func (c *Context) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if err := c.bctx.Close(); err != nil {
		return fmt.Errorf("failed to close browser context: %w", err)
	}
	c.logger.Debug("Browser context closed.")
	return nil
}

// Page wraps a playwright.Page.
type Page struct {
	id            string
	page          playwright.Page
	owner         *Context
	actionTimeout time.Duration
	logger        *zap.Logger
}

var _ browser.Page = (*Page)(nil)

// translate maps Playwright's error vocabulary onto the browser package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%w: %w", browser.ErrTimeout, err)
	case errors.Is(err, playwright.ErrTargetClosed):
		return fmt.Errorf("%w: %w", browser.ErrClosed, err)
	}
	return err
}

// timeout returns the Playwright timeout (ms) for an action, honoring the ctx deadline.
func (p *Page) timeout(ctx context.Context) *float64 {
	d := p.actionTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < d {
			d = remaining
		}
	}
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return playwright.Float(float64(d.Milliseconds()))
}

func (p *Page) do(ctx context.Context, action, selector string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return browser.WrapAction(action, p.id, selector, err)
	}
	if p.page.IsClosed() {
		return browser.WrapAction(action, p.id, selector, browser.ErrClosed)
	}
	p.logger.Debug("Running action.", zap.String("action", action), zap.String("selector", selector))
	return browser.WrapAction(action, p.id, selector, translate(fn()))
}

func (p *Page) first(selector string) playwright.Locator {
	return p.page.Locator(selector).First()
}

func (p *Page) ID() string     { return p.id }
func (p *Page) URL() string    { return p.page.URL() }
func (p *Page) IsClosed() bool { return p.page.IsClosed() }

func (p *Page) Goto(ctx context.Context, url string) error {
	return p.do(ctx, "goto", url, func() error {
		_, err := p.page.Goto(url, playwright.PageGotoOptions{
			Timeout:   p.timeout(ctx),
			WaitUntil: playwright.WaitUntilStateLoad,
		})
		return err
	})
}

func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	err := p.do(ctx, "title", "", func() (err error) {
		title, err = p.page.Title()
		return err
	})
	return title, err
}

func (p *Page) Click(ctx context.Context, selector string) error {
	return p.do(ctx, "click", selector, func() error {
		return p.first(selector).Click(playwright.LocatorClickOptions{Timeout: p.timeout(ctx)})
	})
}

func (p *Page) Fill(ctx context.Context, selector, value string) error {
	return p.do(ctx, "fill", selector, func() error {
		return p.first(selector).Fill(value, playwright.LocatorFillOptions{Timeout: p.timeout(ctx)})
	})
}

func (p *Page) Press(ctx context.Context, selector, key string) error {
	return p.do(ctx, "press", selector, func() error {
		return p.first(selector).Press(key, playwright.LocatorPressOptions{Timeout: p.timeout(ctx)})
	})
}

func (p *Page) SetChecked(ctx context.Context, selector string, checked bool) error {
	return p.do(ctx, "set_checked", selector, func() error {
		return p.first(selector).SetChecked(checked, playwright.LocatorSetCheckedOptions{Timeout: p.timeout(ctx)})
	})
}

func (p *Page) SelectOption(ctx context.Context, selector, value string) error {
	return p.do(ctx, "select_option", selector, func() error {
		_, err := p.first(selector).SelectOption(
			playwright.SelectOptionValues{Values: &[]string{value}},
			playwright.LocatorSelectOptionOptions{Timeout: p.timeout(ctx)},
		)
		return err
	})
}

func (p *Page) Text(ctx context.Context, selector string) (string, error) {
	var text string
	err := p.do(ctx, "text", selector, func() (err error) {
		text, err = p.first(selector).TextContent(playwright.LocatorTextContentOptions{Timeout: p.timeout(ctx)})
		return err
	})
	return text, err
}

func (p *Page) Attribute(ctx context.Context, selector, name string) (string, error) {
	var value string
	err := p.do(ctx, "attribute", selector, func() (err error) {
		value, err = p.first(selector).GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: p.timeout(ctx)})
		return err
	})
	return value, err
}

func (p *Page) IsVisible(ctx context.Context, selector string) (bool, error) {
	var visible bool
	err := p.do(ctx, "is_visible", selector, func() (err error) {
		visible, err = p.first(selector).IsVisible()
		return err
	})
	return visible, err
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	var n int
	err := p.do(ctx, "count", selector, func() (err error) {
		n, err = p.page.Locator(selector).Count()
		return err
	})
	return n, err
}

func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	return p.do(ctx, "wait_visible", selector, func() error {
		return p.first(selector).WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: p.timeout(ctx),
		})
	})
}

func (p *Page) WaitLoaded(ctx context.Context) error {
	return p.do(ctx, "wait_loaded", "", func() error {
		return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   playwright.LoadStateLoad,
			Timeout: p.timeout(ctx),
		})
	})
}

func (p *Page) ClickForNewPage(ctx context.Context, selector string) (browser.Page, error) {
	var opened playwright.Page
	err := p.do(ctx, "click_for_new_page", selector, func() (err error) {
		opened, err = p.owner.bctx.ExpectPage(func() error {
			return p.first(selector).Click(playwright.LocatorClickOptions{Timeout: p.timeout(ctx)})
		}, playwright.BrowserContextExpectPageOptions{Timeout: p.timeout(ctx)})
		if err != nil {
			return err
		}
		return opened.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   playwright.LoadStateLoad,
			Timeout: p.timeout(ctx),
		})
	})
	if err != nil {
		return nil, err
	}
	return p.owner.wrap(opened), nil
}

func (p *Page) Close(ctx context.Context) error {
	if p.page.IsClosed() {
		return nil
	}
	if err := p.page.Close(); err != nil {
		return browser.WrapAction("close", p.id, "", translate(err))
	}
	p.logger.Debug("Page closed.")
	return nil
}
