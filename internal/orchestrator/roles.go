package orchestrator

import (
	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
	"github.com/xkilldash9x/crosscheck-cli/internal/pages"
	"github.com/xkilldash9x/crosscheck-cli/internal/pages/bo"
	"github.com/xkilldash9x/crosscheck-cli/internal/pages/fo"
	"github.com/xkilldash9x/crosscheck-cli/internal/registry"
)

// RegisterPageObjects registers every back office and storefront page object.
func RegisterPageObjects(r *registry.Registry) *registry.Registry {
	return r.
		MustRegister(pages.RoleLogin, func(p browser.Page) any { return bo.NewLoginPage(p) }).
		MustRegister(pages.RoleDashboard, func(p browser.Page) any { return bo.NewDashboardPage(p) }).
		MustRegister(pages.RoleProductSettings, func(p browser.Page) any { return bo.NewProductSettingsPage(p) }).
		MustRegister(pages.RoleProducts, func(p browser.Page) any { return bo.NewProductsPage(p) }).
		MustRegister(pages.RoleAddProduct, func(p browser.Page) any { return bo.NewAddProductPage(p) }).
		MustRegister(pages.RoleHome, func(p browser.Page) any { return fo.NewHomePage(p) }).
		MustRegister(pages.RoleSearchResults, func(p browser.Page) any { return fo.NewSearchResultsPage(p) }).
		MustRegister(pages.RoleProduct, func(p browser.Page) any { return fo.NewProductPage(p) })
}
