package orchestrator

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/crosscheck-cli/internal/pages"
	"github.com/xkilldash9x/crosscheck-cli/internal/pages/bo"
	"github.com/xkilldash9x/crosscheck-cli/internal/pages/fo"
	"github.com/xkilldash9x/crosscheck-cli/internal/registry"
	"github.com/xkilldash9x/crosscheck-cli/internal/scenario"
	"github.com/xkilldash9x/crosscheck-cli/internal/verify"
)

// deliveryTimeSteps is the per-scenario sequence: configure in BO, cross to
// the storefront, find the fixture, verify the delivery block, come back.
func (r *run) deliveryTimeSteps() []scenario.Step {
	return []scenario.Step{
		{
			ID:   "{action}StockManagement",
			Name: "configure delivery time of out-of-stock products",
			Run:  r.configure,
		},
		{
			ID:   "viewMyShop{index}",
			Name: "view my shop",
			Run:  r.crossToStorefront,
		},
		{
			ID:   "searchProduct{index}",
			Name: "search the fixture product and open it",
			Run:  r.openFixtureProduct,
		},
		{
			ID:   "deliveryTimeBlockVisible{index}",
			Name: "check delivery time block visibility",
			Run:  r.checkDeliveryVisibility,
		},
		{
			ID:   "deliveryTimeBlockText{index}",
			Name: "check delivery time text",
			When: scenario.OnlyEnabled,
			Run:  r.checkDeliveryText,
		},
		{
			ID:   "goBackToBo{index}",
			Name: "close the storefront and go back to the back office",
			Run:  r.returnToBackOffice,
		},
	}
}

func (r *run) configure(ctx context.Context, set scenario.ParameterSet) error {
	settings, err := registry.Lookup[*bo.ProductSettingsPage](r.registry, pages.RoleProductSettings)
	if err != nil {
		return err
	}
	msg, err := settings.SetAllowOrderingOutOfStock(ctx, set.Enabled())
	if err != nil {
		return fmt.Errorf("set allow ordering out of stock: %w", err)
	}
	if err := verify.Contains("bo.productSettings.allowOrderingOutOfStock", bo.SuccessfulUpdateMessage, msg).Err(); err != nil {
		return err
	}

	// A disabled set carries no text, which clears the field.
	msg, err = settings.SetDeliveryTimeOutOfStock(ctx, set.ExpectedText())
	if err != nil {
		return fmt.Errorf("set delivery time: %w", err)
	}
	return verify.Contains("bo.productSettings.deliveryTime", bo.SuccessfulUpdateMessage, msg).Err()
}

func (r *run) crossToStorefront(ctx context.Context, _ scenario.ParameterSet) error {
	settings, err := registry.Lookup[*bo.ProductSettingsPage](r.registry, pages.RoleProductSettings)
	if err != nil {
		return err
	}
	storefront, err := settings.ViewMyShop(ctx)
	if err != nil {
		return fmt.Errorf("view my shop: %w", err)
	}
	if err := r.sessions.AdoptPage(storefront); err != nil {
		return err
	}

	home, err := registry.Lookup[*fo.HomePage](r.registry, pages.RoleHome)
	if err != nil {
		return err
	}
	if err := home.ChangeLanguage(ctx, r.cfg.Shop.Locale); err != nil {
		return fmt.Errorf("change language to %q: %w", r.cfg.Shop.Locale, err)
	}
	lang, err := home.Language(ctx)
	if err != nil {
		return err
	}
	if err := verify.Equal("fo.home.language", r.cfg.Shop.Locale, lang).Err(); err != nil {
		return err
	}
	ok, err := home.IsHomePage(ctx)
	if err != nil {
		return err
	}
	return verify.True("fo.home.visible", ok).Err()
}

func (r *run) openFixtureProduct(ctx context.Context, _ scenario.ParameterSet) error {
	home, err := registry.Lookup[*fo.HomePage](r.registry, pages.RoleHome)
	if err != nil {
		return err
	}
	if err := home.SearchProduct(ctx, r.fixture.Name()); err != nil {
		return fmt.Errorf("search %q: %w", r.fixture.Name(), err)
	}

	found, err := registry.Lookup[*fo.SearchResultsPage](r.registry, pages.RoleSearchResults)
	if err != nil {
		return err
	}
	n, err := found.ResultCount(ctx)
	if err != nil {
		return err
	}
	if err := verify.Greater("fo.searchResults.count", 0, n).Err(); err != nil {
		return err
	}
	return found.GoToProductPage(ctx, 1)
}

func (r *run) checkDeliveryVisibility(ctx context.Context, set scenario.ParameterSet) error {
	product, err := registry.Lookup[*fo.ProductPage](r.registry, pages.RoleProduct)
	if err != nil {
		return err
	}
	visible, err := product.IsDeliveryInformationVisible(ctx)
	if err != nil {
		return err
	}
	return verify.Equal("fo.product.deliveryInformation.visible", set.Enabled(), visible).Err()
}

func (r *run) checkDeliveryText(ctx context.Context, set scenario.ParameterSet) error {
	product, err := registry.Lookup[*fo.ProductPage](r.registry, pages.RoleProduct)
	if err != nil {
		return err
	}
	text, err := product.DeliveryInformationText(ctx)
	if err != nil {
		return err
	}
	return verify.Equal("fo.product.deliveryInformation.text", set.ExpectedText(), text).Err()
}

// returnToBackOffice closes the storefront tab, landing on the first page.
func (r *run) returnToBackOffice(ctx context.Context, _ scenario.ParameterSet) error {
	if err := r.sessions.ClosePage(ctx, 0); err != nil {
		return err
	}
	if err := r.checkBackOfficeActive(); err != nil {
		return err
	}
	return r.checkSettingsTitle(ctx)
}

// checkBackOfficeActive fails when the page in focus is not the one logged in on.
func (r *run) checkBackOfficeActive() error {
	active, err := r.sessions.ActivePage()
	if err != nil {
		return err
	}
	return verify.Equal("session.activePage", r.backOfficePageID, active.ID()).Err()
}

func (r *run) checkSettingsTitle(ctx context.Context) error {
	settings, err := registry.Lookup[*bo.ProductSettingsPage](r.registry, pages.RoleProductSettings)
	if err != nil {
		return err
	}
	title, err := settings.PageTitle(ctx)
	if err != nil {
		return err
	}
	return verify.Contains("bo.productSettings.title", bo.ProductSettingsPageTitle, title).Err()
}

func (r *run) goToProductSettings(ctx context.Context) error {
	dashboard, err := registry.Lookup[*bo.DashboardPage](r.registry, pages.RoleDashboard)
	if err != nil {
		return err
	}
	if err := dashboard.GoToSubMenu(ctx, bo.ShopParametersParentLink, bo.ProductSettingsLink); err != nil {
		return fmt.Errorf("go to product settings: %w", err)
	}
	return r.checkSettingsTitle(ctx)
}

// recoverSession brings the session back to the product settings page after a
// scenario failed part way: extra tabs are closed and settings reopened.
func (r *run) recoverSession(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Run.StepTimeout)
	defer cancel()

	for len(r.sessions.Pages()) > 1 {
		if r.sessions.ActiveIndex() == 0 {
			return fmt.Errorf("back office page is active while %d pages are open", len(r.sessions.Pages()))
		}
		if err := r.sessions.ClosePage(ctx, 0); err != nil {
			return err
		}
	}
	if err := r.checkBackOfficeActive(); err != nil {
		return err
	}
	if r.checkSettingsTitle(ctx) == nil {
		return nil
	}
	r.logger.Info("Reopening product settings after failed scenario.")
	return r.goToProductSettings(ctx)
}
