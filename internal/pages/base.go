// Package pages holds the capabilities shared by the back office and
// storefront page objects. Page objects are thin: each wraps the page it was
// built on and never switches pages itself.
package pages

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
)

// Roles under which page objects are registered.
const (
	RoleLogin           = "bo.login"
	RoleDashboard       = "bo.dashboard"
	RoleProductSettings = "bo.productSettings"
	RoleProducts        = "bo.products"
	RoleAddProduct      = "bo.addProduct"
	RoleHome            = "fo.home"
	RoleSearchResults   = "fo.searchResults"
	RoleProduct         = "fo.product"
)

// Base is embedded by every page object.
type Base struct {
	Page browser.Page
}

func NewBase(page browser.Page) Base { return Base{Page: page} }

// PageTitle returns the document title.
func (b Base) PageTitle(ctx context.Context) (string, error) {
	return b.Page.Title(ctx)
}

// TextContent returns the text of selector with runs of whitespace collapsed and trimmed.
func (b Base) TextContent(ctx context.Context, selector string) (string, error) {
	if err := b.Page.WaitVisible(ctx, selector); err != nil {
		return "", err
	}
	text, err := b.Page.Text(ctx, selector)
	if err != nil {
		return "", err
	}
	return NormalizeSpace(text), nil
}

// ElementVisible waits up to timeout for selector to become visible.
// Not becoming visible in time is a false result, not an error.
func (b Base) ElementVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := b.Page.WaitVisible(waitCtx, selector)
	switch {
	case err == nil:
		return true, nil
	case ctx.Err() != nil:
		return false, err
	case browser.IsTimeout(err), errors.Is(err, browser.ErrNotFound):
		return false, nil
	}
	return false, err
}

// ClickAndWait clicks selector and waits for the resulting load.
func (b Base) ClickAndWait(ctx context.Context, selector string) error {
	if err := b.Page.Click(ctx, selector); err != nil {
		return err
	}
	return b.Page.WaitLoaded(ctx)
}

// NormalizeSpace collapses whitespace runs to single spaces and trims the ends.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
