package orchestrator

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/crosscheck-cli/internal/fixture"
	"github.com/xkilldash9x/crosscheck-cli/internal/pages"
	"github.com/xkilldash9x/crosscheck-cli/internal/pages/bo"
	"github.com/xkilldash9x/crosscheck-cli/internal/registry"
	"github.com/xkilldash9x/crosscheck-cli/internal/verify"
)

// backOfficeCatalog creates and deletes products through Catalog > Products,
// using whatever back office page is active.
type backOfficeCatalog struct {
	registry *registry.Registry
}

var _ fixture.Catalog = (*backOfficeCatalog)(nil)

// openProducts navigates to the products list and checks its title.
func (c *backOfficeCatalog) openProducts(ctx context.Context) (*bo.ProductsPage, error) {
	dashboard, err := registry.Lookup[*bo.DashboardPage](c.registry, pages.RoleDashboard)
	if err != nil {
		return nil, err
	}
	if err := dashboard.GoToSubMenu(ctx, bo.CatalogParentLink, bo.ProductsLink); err != nil {
		return nil, fmt.Errorf("go to products: %w", err)
	}
	if err := dashboard.CloseSfToolBar(ctx); err != nil {
		return nil, fmt.Errorf("close debug toolbar: %w", err)
	}

	products, err := registry.Lookup[*bo.ProductsPage](c.registry, pages.RoleProducts)
	if err != nil {
		return nil, err
	}
	title, err := products.PageTitle(ctx)
	if err != nil {
		return nil, err
	}
	if err := verify.Contains("bo.products.title", bo.ProductsPageTitle, title).Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *backOfficeCatalog) CreateProduct(ctx context.Context, p fixture.Product) (string, error) {
	products, err := c.openProducts(ctx)
	if err != nil {
		return "", err
	}
	if err := products.GoToAddProductPage(ctx); err != nil {
		return "", fmt.Errorf("open product form: %w", err)
	}
	form, err := registry.Lookup[*bo.AddProductPage](c.registry, pages.RoleAddProduct)
	if err != nil {
		return "", err
	}
	return form.CreateEditBasicProduct(ctx, p)
}

func (c *backOfficeCatalog) DeleteProduct(ctx context.Context, p fixture.Product) (string, error) {
	products, err := c.openProducts(ctx)
	if err != nil {
		return "", err
	}
	return products.DeleteProduct(ctx, p.Name)
}

// checkCatalogRestored clears the list filters and requires a non-empty catalog.
func (c *backOfficeCatalog) checkCatalogRestored(ctx context.Context) error {
	products, err := registry.Lookup[*bo.ProductsPage](c.registry, pages.RoleProducts)
	if err != nil {
		return err
	}
	if err := products.ResetFilterCategory(ctx); err != nil {
		return fmt.Errorf("reset category filter: %w", err)
	}
	n, err := products.ResetAndGetNumberOfLines(ctx)
	if err != nil {
		return fmt.Errorf("reset filters: %w", err)
	}
	return verify.Greater("bo.products.rows", 0, n).Err()
}
