package bo

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
)

const (
	ProductsPageTitle     = "Products"
	ProductDeletedMessage = "Product successfully deleted."
)

const (
	AddNewProductLink         = "#page-header-desc-configuration-add"
	ProductListTable          = "#product_catalog_list table"
	ProductListRows           = ProductListTable + " tbody tr[data-product-id]"
	FilterNameInput           = ProductListTable + " input[name='filter_column_name']"
	FilterSearchButton        = ProductListTable + " button[name='products_filter_submit']"
	FilterResetButton         = ProductListTable + " button[name='products_filter_reset']"
	FirstRowDropdownToggle    = ProductListRows + ":nth-child(1) .dropdown-toggle"
	FirstRowDeleteLink        = ProductListRows + ":nth-child(1) a.product-edit[onclick*='delete']"
	DeletionModalConfirm      = "#catalog_deletion_modal button[value='confirm']"
	CategoryFilterButton      = "#product_catalog_category_tree_filter button"
	CategoryFilterResetButton = "#product_catalog_category_tree_filter_reset"
)

// ProductsPage is Catalog > Products.
type ProductsPage struct {
	Common
}

func NewProductsPage(page browser.Page) *ProductsPage {
	return &ProductsPage{Common: NewCommon(page)}
}

func (p *ProductsPage) GoToAddProductPage(ctx context.Context) error {
	return p.ClickAndWait(ctx, AddNewProductLink)
}

// FilterByName narrows the product list to rows matching name.
func (p *ProductsPage) FilterByName(ctx context.Context, name string) error {
	if err := p.Page.Fill(ctx, FilterNameInput, name); err != nil {
		return err
	}
	return p.ClickAndWait(ctx, FilterSearchButton)
}

// DeleteProduct deletes the first product named name and returns the acknowledgment.
func (p *ProductsPage) DeleteProduct(ctx context.Context, name string) (string, error) {
	if err := p.FilterByName(ctx, name); err != nil {
		return "", fmt.Errorf("filter products by name: %w", err)
	}
	n, err := p.Page.Count(ctx, ProductListRows)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("no product named %q: %w", name, browser.ErrNotFound)
	}
	if err := p.Page.Click(ctx, FirstRowDropdownToggle); err != nil {
		return "", err
	}
	if err := p.Page.Click(ctx, FirstRowDeleteLink); err != nil {
		return "", err
	}
	if err := p.ClickAndWait(ctx, DeletionModalConfirm); err != nil {
		return "", err
	}
	return p.AlertSuccessMessage(ctx)
}

// ResetFilterCategory clears the category tree filter.
func (p *ProductsPage) ResetFilterCategory(ctx context.Context) error {
	if err := p.Page.Click(ctx, CategoryFilterButton); err != nil {
		return err
	}
	return p.ClickAndWait(ctx, CategoryFilterResetButton)
}

// ResetAndGetNumberOfLines clears the list filters when set and counts the rows.
func (p *ProductsPage) ResetAndGetNumberOfLines(ctx context.Context) (int, error) {
	visible, err := p.ElementVisible(ctx, FilterResetButton, optionalElementWait)
	if err != nil {
		return 0, err
	}
	if visible {
		if err := p.ClickAndWait(ctx, FilterResetButton); err != nil {
			return 0, err
		}
	}
	return p.Page.Count(ctx, ProductListRows)
}
