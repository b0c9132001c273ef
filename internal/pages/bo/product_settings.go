package bo

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
)

const (
	ProductSettingsPageTitle = "Product Settings"
	SuccessfulUpdateMessage  = "Update successful"
)

const (
	ProductsStockForm           = "#configuration_fieldset_stock"
	DeliveryTimeOutOfStockInput = ProductsStockForm + " #form_stock_delivery_time_oos_1"
	SaveProductsStockButton     = ProductsStockForm + " .card-footer button"
)

func AllowOrderingOutOfStockToggle(enabled bool) string {
	n := 0
	if enabled {
		n = 1
	}
	return fmt.Sprintf("%s #form_stock_allow_ordering_oos_%d", ProductsStockForm, n)
}

// ProductSettingsPage is Shop Parameters > Product Settings.
type ProductSettingsPage struct {
	Common
}

func NewProductSettingsPage(page browser.Page) *ProductSettingsPage {
	return &ProductSettingsPage{Common: NewCommon(page)}
}

// SetAllowOrderingOutOfStock switches "allow ordering of out-of-stock
// products", saves the stock form and returns the acknowledgment.
func (p *ProductSettingsPage) SetAllowOrderingOutOfStock(ctx context.Context, enabled bool) (string, error) {
	if err := p.Page.SetChecked(ctx, AllowOrderingOutOfStockToggle(enabled), true); err != nil {
		return "", err
	}
	return p.saveStockForm(ctx)
}

// SetDeliveryTimeOutOfStock sets the delivery time label of out-of-stock
// products with allowed orders. An empty text clears it.
func (p *ProductSettingsPage) SetDeliveryTimeOutOfStock(ctx context.Context, text string) (string, error) {
	if err := p.Page.Fill(ctx, DeliveryTimeOutOfStockInput, text); err != nil {
		return "", err
	}
	return p.saveStockForm(ctx)
}

func (p *ProductSettingsPage) saveStockForm(ctx context.Context) (string, error) {
	if err := p.ClickAndWait(ctx, SaveProductsStockButton); err != nil {
		return "", err
	}
	return p.AlertSuccessMessage(ctx)
}
