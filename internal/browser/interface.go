// internal/browser/interface.go
package browser

import (
	"context"
)

// Driver launches the browser process and hands out isolated contexts.
// Implementations are backed by playwright-go (pwdriver) or chromedp (cdpdriver).
type Driver interface {
	// Name identifies the backend, e.g. "playwright".
	Name() string
	// NewContext allocates a fresh isolated browser context (own cookies and storage).
	NewContext(ctx context.Context) (BrowserContext, error)
	// Shutdown closes the browser process and releases the driver.
	Shutdown(ctx context.Context) error
}

// BrowserContext is an isolated session boundary owning zero or more pages.
type BrowserContext interface {
	ID() string
	// NewPage opens a new blank tab inside the context.
	NewPage(ctx context.Context) (Page, error)
	// Close closes every page of the context and disposes it.
	Close(ctx context.Context) error
}

// Page is a single navigable tab. Selectors are CSS selectors; actions that
// target a selector operate on its first match.
type Page interface {
	ID() string
	URL() string
	IsClosed() bool

	Goto(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)

	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	Press(ctx context.Context, selector, key string) error
	SetChecked(ctx context.Context, selector string, checked bool) error
	SelectOption(ctx context.Context, selector, value string) error

	Text(ctx context.Context, selector string) (string, error)
	Attribute(ctx context.Context, selector, name string) (string, error)
	IsVisible(ctx context.Context, selector string) (bool, error)
	Count(ctx context.Context, selector string) (int, error)
	WaitVisible(ctx context.Context, selector string) error
	WaitLoaded(ctx context.Context) error

	// ClickForNewPage clicks selector and returns the tab the click opened.
	ClickForNewPage(ctx context.Context, selector string) (Page, error)

	Close(ctx context.Context) error
}
