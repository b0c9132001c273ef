// internal/session/manager.go
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
	"github.com/xkilldash9x/crosscheck-cli/internal/observability"
)

// Binder is notified synchronously each time the active page changes.
type Binder interface {
	Rebuild(page browser.Page) error
}

// BinderFunc adapts a function to Binder.
type BinderFunc func(page browser.Page) error

func (f BinderFunc) Rebuild(page browser.Page) error { return f(page) }

// Manager owns the isolated browser context of a run and the single active page.
// Pages are kept in opening order; the active page is addressed by index.
type Manager struct {
	driver browser.Driver
	binder Binder
	logger *zap.Logger

	mu     sync.RWMutex
	bctx   browser.BrowserContext
	pages  []browser.Page
	active int
}

// NewManager creates a Manager. binder may be nil.
func NewManager(driver browser.Driver, binder Binder, logger *zap.Logger) *Manager {
	return &Manager{
		driver: driver,
		binder: binder,
		logger: logger.Named("session"),
		active: -1,
	}
}

// CreateSession allocates a fresh isolated browser context.
func (m *Manager) CreateSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bctx != nil {
		return &SessionError{Op: "create", Err: ErrSessionExists}
	}
	bctx, err := m.driver.NewContext(ctx)
	if err != nil {
		return &SessionError{Op: "create", Err: err}
	}
	m.bctx = bctx
	m.pages = nil
	m.active = -1
	m.logger.Info("Browser session created.", zap.String("driver", m.driver.Name()), zap.String("context_id", bctx.ID()))
	return nil
}

// OpenPage opens a new page in the session and makes it active.
func (m *Manager) OpenPage(ctx context.Context) (browser.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bctx == nil {
		return nil, &SessionError{Op: "open page", Err: ErrNoSession}
	}
	page, err := m.bctx.NewPage(ctx)
	if err != nil {
		return nil, &SessionError{Op: "open page", Err: err}
	}
	m.pages = append(m.pages, page)
	if err := m.activateLocked(len(m.pages) - 1); err != nil {
		return nil, err
	}
	return page, nil
}

// AdoptPage registers a page the application opened itself, such as a tab
// opened by a link, and makes it active.
func (m *Manager) AdoptPage(page browser.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bctx == nil {
		return &SessionError{Op: "adopt page", Err: ErrNoSession}
	}
	if page == nil || page.IsClosed() {
		return &SessionError{Op: "adopt page", Err: browser.ErrClosed}
	}
	m.pages = append(m.pages, page)
	return m.activateLocked(len(m.pages) - 1)
}

// ClosePage closes the active page and activates the page at targetIndex
// among the pages that remain open. The index is checked before anything is closed.
func (m *Manager) ClosePage(ctx context.Context, targetIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bctx == nil {
		return &SessionError{Op: "close page", Err: ErrNoSession}
	}
	if m.active < 0 {
		return &SessionError{Op: "close page", Err: ErrNoActivePage}
	}
	remaining := len(m.pages) - 1
	if targetIndex < 0 || targetIndex >= remaining {
		return &PageNotFoundError{Index: targetIndex, Open: remaining}
	}

	closing := m.pages[m.active]
	m.pages = append(m.pages[:m.active:m.active], m.pages[m.active+1:]...)
	m.active = -1

	if err := closing.Close(ctx); err != nil {
		m.logger.Warn("Closing page failed, it is dropped from the session anyway.", zap.String(observability.KeyPage, closing.ID()), zap.Error(err))
		if actErr := m.activateLocked(targetIndex); actErr != nil {
			return actErr
		}
		return &SessionError{Op: "close page", Err: err}
	}
	m.logger.Debug("Page closed.", zap.String(observability.KeyPage, closing.ID()))
	return m.activateLocked(targetIndex)
}

// activateLocked switches the active page and rebinds. Caller holds m.mu.
func (m *Manager) activateLocked(index int) error {
	page := m.pages[index]
	if page.IsClosed() {
		return &SessionError{Op: "activate", Err: browser.ErrClosed}
	}
	m.active = index
	m.logger.Debug("Active page changed.", zap.Int("index", index), zap.String(observability.KeyPage, page.ID()))
	if m.binder == nil {
		return nil
	}
	if err := m.binder.Rebuild(page); err != nil {
		return &SessionError{Op: "bind", Err: err}
	}
	return nil
}

// ActivePage returns the page currently in focus.
func (m *Manager) ActivePage() (browser.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active < 0 {
		return nil, ErrNoActivePage
	}
	return m.pages[m.active], nil
}

// ActiveIndex returns the index of the active page, or -1.
func (m *Manager) ActiveIndex() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Pages returns a snapshot of the open pages in opening order.
func (m *Manager) Pages() []browser.Page {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]browser.Page(nil), m.pages...)
}

// DestroySession closes every page and releases the browser context. It is
// safe to call more than once and after a failed CreateSession.
func (m *Manager) DestroySession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bctx == nil {
		return nil
	}

	var errs []error
	for _, p := range m.pages {
		if p.IsClosed() {
			continue
		}
		if err := p.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.bctx.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	id := m.bctx.ID()
	m.bctx = nil
	m.pages = nil
	m.active = -1

	if err := errors.Join(errs...); err != nil {
		m.logger.Error("Browser session released with errors.", zap.String("context_id", id), zap.Error(err))
		return &SessionError{Op: "destroy", Err: err}
	}
	m.logger.Info("Browser session released.", zap.String("context_id", id))
	return nil
}
