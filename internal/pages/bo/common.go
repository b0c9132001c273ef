// Package bo contains the back office page objects.
package bo

import (
	"context"
	"time"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
	"github.com/xkilldash9x/crosscheck-cli/internal/pages"
)

// Side menu entries.
const (
	CatalogParentLink        = "li#subtab-AdminCatalog"
	ProductsLink             = "li#subtab-AdminProducts"
	ShopParametersParentLink = "li#subtab-ShopParameters"
	ProductSettingsLink      = "li#subtab-AdminPPreferences"
)

const (
	HeaderShopNameLink   = "#header_shopname"
	SfToolbarMainContent = "div[id*='sfToolbarMainContent']"
	SfToolbarHideButton  = "a[id*='sfToolbarHideButton']"
	AlertSuccessText     = ".alert-success .alert-text"
	GrowlMessageText     = "#growls .growl-message"

	// How long optional chrome such as the debug toolbar gets to show up.
	optionalElementWait = time.Second
)

// Common is embedded by every back office page object.
type Common struct {
	pages.Base
}

func NewCommon(page browser.Page) Common {
	return Common{Base: pages.NewBase(page)}
}

// GoToSubMenu opens parent in the side menu, then follows link.
func (c Common) GoToSubMenu(ctx context.Context, parent, link string) error {
	if err := c.ClickAndWait(ctx, parent); err != nil {
		return err
	}
	visible, err := c.ElementVisible(ctx, link, optionalElementWait)
	if err != nil {
		return err
	}
	if !visible {
		// Collapsed sidebar: the submenu only opens on a second click.
		if err := c.Page.Click(ctx, parent); err != nil {
			return err
		}
		if err := c.Page.WaitVisible(ctx, link); err != nil {
			return err
		}
	}
	return c.ClickAndWait(ctx, link+" a")
}

// CloseSfToolBar hides the Symfony debug toolbar when the shop runs in debug mode.
func (c Common) CloseSfToolBar(ctx context.Context) error {
	visible, err := c.ElementVisible(ctx, SfToolbarMainContent, optionalElementWait)
	if err != nil || !visible {
		return err
	}
	return c.Page.Click(ctx, SfToolbarHideButton)
}

// ViewMyShop opens the storefront from the header. The storefront opens in
// a new tab, which is returned.
func (c Common) ViewMyShop(ctx context.Context) (browser.Page, error) {
	return c.Page.ClickForNewPage(ctx, HeaderShopNameLink)
}

// AlertSuccessMessage returns the text of the success alert shown after a form submit.
func (c Common) AlertSuccessMessage(ctx context.Context) (string, error) {
	return c.TextContent(ctx, AlertSuccessText)
}

// GrowlMessage returns the text of the notification shown by the product form.
func (c Common) GrowlMessage(ctx context.Context) (string, error) {
	return c.TextContent(ctx, GrowlMessageText)
}
