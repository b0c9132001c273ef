// Package browsertest provides an in-memory browser.Driver for tests. Pages
// hold a static element table keyed by selector; clicks can be scripted to
// mutate state or open popups.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
)

// Element is the observable state of one selector on a fake page.
type Element struct {
	Text    string
	Visible bool
	Checked bool
	// Group names a radio group; checking one member unchecks the others.
	Group string
	Value   string
	Attrs   map[string]string
	// Matches is the number of nodes the selector matches; zero means one.
	Matches int
}

// Driver is a fake browser.Driver.
type Driver struct {
	mu            sync.Mutex
	contexts      []*Context
	nextContext   int
	nextPage      int
	shutdown      bool
	NewContextErr error
	// Setup runs for every page opened through a context, popups included.
	Setup func(p *Page)
}

var _ browser.Driver = (*Driver)(nil)

func NewDriver() *Driver { return &Driver{} }

func (d *Driver) Name() string { return "fake" }

func (d *Driver) NewContext(ctx context.Context) (browser.BrowserContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.NewContextErr != nil {
		return nil, d.NewContextErr
	}
	if d.shutdown {
		return nil, browser.ErrUnavailable
	}
	d.nextContext++
	c := &Context{id: fmt.Sprintf("ctx-%d", d.nextContext), driver: d}
	d.contexts = append(d.contexts, c)
	return c, nil
}

func (d *Driver) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shutdown = true
	return nil
}

// Contexts returns every context handed out so far.
func (d *Driver) Contexts() []*Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Context(nil), d.contexts...)
}

func (d *Driver) IsShutdown() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown
}

func (d *Driver) pageID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextPage++
	return fmt.Sprintf("page-%d", d.nextPage)
}

// Context is a fake browser.BrowserContext.
type Context struct {
	id     string
	driver *Driver

	mu         sync.Mutex
	pages      []*Page
	closed     bool
	NewPageErr error
}

var _ browser.BrowserContext = (*Context)(nil)

func (c *Context) ID() string { return c.id }

func (c *Context) NewPage(ctx context.Context) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, browser.ErrClosed
	}
	if c.NewPageErr != nil {
		err := c.NewPageErr
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()
	return c.open(), nil
}

func (c *Context) open() *Page {
	p := NewPage(c.driver.pageID())
	p.owner = c
	c.mu.Lock()
	c.pages = append(c.pages, p)
	c.mu.Unlock()
	if c.driver.Setup != nil {
		c.driver.Setup(p)
	}
	return p
}

func (c *Context) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pages := append([]*Page(nil), c.pages...)
	c.mu.Unlock()
	for _, p := range pages {
		p.markClosed()
	}
	return nil
}

func (c *Context) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Pages returns every page opened in the context, closed ones included.
func (c *Context) Pages() []*Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Page(nil), c.pages...)
}

// Page is a fake browser.Page.
type Page struct {
	id    string
	owner *Context

	mu       sync.Mutex
	url      string
	title    string
	closed   bool
	elements map[string]*Element
	onClick  map[string]func(p *Page) error
	popups   map[string]func(p *Page)
	presses  map[string]func(p *Page, key string) error
	failures map[string]error
	blocked  map[string]bool
	closeErr error
	actions  []string
}

var _ browser.Page = (*Page)(nil)

// NewPage builds a standalone page outside any context.
func NewPage(id string) *Page {
	return &Page{
		id:       id,
		url:      "about:blank",
		elements: make(map[string]*Element),
		onClick:  make(map[string]func(p *Page) error),
		popups:   make(map[string]func(p *Page)),
		presses:  make(map[string]func(p *Page, key string) error),
		failures: make(map[string]error),
		blocked:  make(map[string]bool),
	}
}

// Set installs or replaces the element behind selector.
func (p *Page) Set(selector string, el Element) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := el
	p.elements[selector] = &e
	return p
}

// Remove deletes selector from the page.
func (p *Page) Remove(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, selector)
}

// Element returns a copy of the element behind selector.
func (p *Page) Element(selector string) (Element, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.elements[selector]
	if !ok {
		return Element{}, false
	}
	return *el, true
}

// Reset drops every element and click script, as a navigation would.
// Scripted failures and blocks survive.
func (p *Page) Reset() *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements = make(map[string]*Element)
	p.onClick = make(map[string]func(p *Page) error)
	p.popups = make(map[string]func(p *Page))
	p.presses = make(map[string]func(p *Page, key string) error)
	p.title = ""
	return p
}

func (p *Page) SetTitle(title string) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.title = title
	return p
}

// OnClick scripts what a click on selector does.
func (p *Page) OnClick(selector string, fn func(p *Page) error) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClick[selector] = fn
	return p
}

// OnClickOpen makes ClickForNewPage on selector open a new page, configured by setup.
func (p *Page) OnClickOpen(selector string, setup func(popup *Page)) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.popups[selector] = setup
	return p
}

// OnPress scripts what a key press on selector does.
func (p *Page) OnPress(selector string, fn func(p *Page, key string) error) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.presses[selector] = fn
	return p
}

// Fail makes every action on selector return err.
func (p *Page) Fail(selector string, err error) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[selector] = err
	return p
}

// FailClose makes Close return err and leave the page open.
func (p *Page) FailClose(err error) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeErr = err
	return p
}

// Block makes every action on selector wait until its context is done.
func (p *Page) Block(selector string) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blocked[selector] = true
	return p
}

// Actions returns the recorded "action selector" log.
func (p *Page) Actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.actions...)
}

// HasAction reports whether an action was recorded, e.g. "click #save".
func (p *Page) HasAction(entry string) bool {
	for _, a := range p.Actions() {
		if a == entry {
			return true
		}
	}
	return false
}

func (p *Page) markClosed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// begin records the action and applies scripted failures.
func (p *Page) begin(ctx context.Context, action, selector string) error {
	p.mu.Lock()
	closed := p.closed
	failure := p.failures[selector]
	blocked := p.blocked[selector]
	p.actions = append(p.actions, strings.TrimSpace(action+" "+selector))
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return browser.WrapAction(action, p.id, selector, err)
	}
	if closed {
		return browser.WrapAction(action, p.id, selector, browser.ErrClosed)
	}
	if blocked {
		<-ctx.Done()
		return browser.WrapAction(action, p.id, selector, ctx.Err())
	}
	if failure != nil {
		return browser.WrapAction(action, p.id, selector, failure)
	}
	return nil
}

func (p *Page) lookup(action, selector string) (*Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.elements[selector]
	if !ok {
		return nil, browser.WrapAction(action, p.id, selector, browser.ErrNotFound)
	}
	return el, nil
}

func (p *Page) ID() string { return p.id }

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) Goto(ctx context.Context, url string) error {
	if err := p.begin(ctx, "goto", url); err != nil {
		return err
	}
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
	return nil
}

func (p *Page) Title(ctx context.Context) (string, error) {
	if err := p.begin(ctx, "title", ""); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title, nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	if err := p.begin(ctx, "click", selector); err != nil {
		return err
	}
	if _, err := p.lookup("click", selector); err != nil {
		return err
	}
	p.mu.Lock()
	fn := p.onClick[selector]
	p.mu.Unlock()
	if fn != nil {
		return fn(p)
	}
	return nil
}

func (p *Page) Fill(ctx context.Context, selector, value string) error {
	if err := p.begin(ctx, "fill", selector); err != nil {
		return err
	}
	el, err := p.lookup("fill", selector)
	if err != nil {
		return err
	}
	p.mu.Lock()
	el.Value = value
	p.mu.Unlock()
	return nil
}

func (p *Page) Press(ctx context.Context, selector, key string) error {
	if err := p.begin(ctx, "press", selector); err != nil {
		return err
	}
	if _, err := p.lookup("press", selector); err != nil {
		return err
	}
	p.mu.Lock()
	fn := p.presses[selector]
	p.mu.Unlock()
	if fn != nil {
		return fn(p, key)
	}
	return nil
}

func (p *Page) SetChecked(ctx context.Context, selector string, checked bool) error {
	if err := p.begin(ctx, "set_checked", selector); err != nil {
		return err
	}
	el, err := p.lookup("set_checked", selector)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if checked && el.Group != "" {
		for _, other := range p.elements {
			if other.Group == el.Group {
				other.Checked = false
			}
		}
	}
	el.Checked = checked
	return nil
}

func (p *Page) SelectOption(ctx context.Context, selector, value string) error {
	if err := p.begin(ctx, "select_option", selector); err != nil {
		return err
	}
	el, err := p.lookup("select_option", selector)
	if err != nil {
		return err
	}
	p.mu.Lock()
	el.Value = value
	p.mu.Unlock()
	return nil
}

func (p *Page) Text(ctx context.Context, selector string) (string, error) {
	if err := p.begin(ctx, "text", selector); err != nil {
		return "", err
	}
	el, err := p.lookup("text", selector)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return el.Text, nil
}

func (p *Page) Attribute(ctx context.Context, selector, name string) (string, error) {
	if err := p.begin(ctx, "attribute", selector); err != nil {
		return "", err
	}
	el, err := p.lookup("attribute", selector)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return el.Attrs[name], nil
}

func (p *Page) IsVisible(ctx context.Context, selector string) (bool, error) {
	if err := p.begin(ctx, "is_visible", selector); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.elements[selector]
	return ok && el.Visible, nil
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	if err := p.begin(ctx, "count", selector); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.elements[selector]
	switch {
	case !ok:
		return 0, nil
	case el.Matches == 0:
		return 1, nil
	}
	return el.Matches, nil
}

// WaitVisible succeeds at once for a visible element and otherwise waits for ctx.
func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	if err := p.begin(ctx, "wait_visible", selector); err != nil {
		return err
	}
	p.mu.Lock()
	el, ok := p.elements[selector]
	visible := ok && el.Visible
	p.mu.Unlock()
	if visible {
		return nil
	}
	<-ctx.Done()
	return browser.WrapAction("wait_visible", p.id, selector, ctx.Err())
}

func (p *Page) WaitLoaded(ctx context.Context) error {
	return p.begin(ctx, "wait_loaded", "")
}

func (p *Page) ClickForNewPage(ctx context.Context, selector string) (browser.Page, error) {
	if err := p.begin(ctx, "click_for_new_page", selector); err != nil {
		return nil, err
	}
	if _, err := p.lookup("click_for_new_page", selector); err != nil {
		return nil, err
	}
	p.mu.Lock()
	setup, ok := p.popups[selector]
	p.mu.Unlock()
	if !ok {
		return nil, browser.WrapAction("click_for_new_page", p.id, selector, fmt.Errorf("%w: click opened no page", browser.ErrTimeout))
	}

	var popup *Page
	if p.owner != nil {
		popup = p.owner.open()
	} else {
		popup = NewPage(p.id + "-popup")
	}
	if setup != nil {
		setup(popup)
	}
	return popup, nil
}

func (p *Page) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, "close")
	if p.closeErr != nil {
		return p.closeErr
	}
	p.closed = true
	return nil
}
