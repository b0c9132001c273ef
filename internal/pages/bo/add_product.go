package bo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
	"github.com/xkilldash9x/crosscheck-cli/internal/fixture"
)

// SettingsUpdatedMessage is the growl shown once the product form is saved.
const SettingsUpdatedMessage = "Settings updated."

const (
	ProductNameInput      = "#form_step1_name_1"
	ProductTypeSelect     = "#form_step1_type_product"
	ProductQuantityInput  = "#form_step1_qty_0_shortcut"
	ProductPriceInput     = "#form_step1_price_shortcut"
	ProductOptionsTab     = "#tab_step6 a"
	ProductReferenceInput = "#form_step6_reference"
	ProductOnlineSwitch   = "#form_step1_active"
	SaveProductButton     = "input#submit"
)

// Option values of the product type select.
var productTypeValues = map[string]string{
	fixture.TypeStandard: "0",
	fixture.TypePack:     "1",
	fixture.TypeVirtual:  "2",
}

// AddProductPage is the product creation form.
type AddProductPage struct {
	Common
}

func NewAddProductPage(page browser.Page) *AddProductPage {
	return &AddProductPage{Common: NewCommon(page)}
}

// CreateEditBasicProduct fills the basic settings of p, puts it online, saves
// and returns the growl message.
func (a *AddProductPage) CreateEditBasicProduct(ctx context.Context, p fixture.Product) (string, error) {
	typeValue, ok := productTypeValues[p.Type]
	if !ok {
		return "", fmt.Errorf("unsupported product type %q", p.Type)
	}

	steps := []func() error{
		func() error { return a.Page.Fill(ctx, ProductNameInput, p.Name) },
		func() error { return a.Page.SelectOption(ctx, ProductTypeSelect, typeValue) },
		func() error { return a.Page.Fill(ctx, ProductQuantityInput, strconv.Itoa(p.Quantity)) },
		func() error { return a.Page.Fill(ctx, ProductPriceInput, strconv.FormatFloat(p.Price, 'f', 2, 64)) },
		func() error { return a.Page.Click(ctx, ProductOptionsTab) },
		func() error { return a.Page.Fill(ctx, ProductReferenceInput, p.Reference) },
		func() error { return a.Page.SetChecked(ctx, ProductOnlineSwitch, true) },
		func() error { return a.Page.Click(ctx, SaveProductButton) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return "", err
		}
	}
	return a.GrowlMessage(ctx)
}
