// Package shoptest simulates the back office and storefront screens the page
// objects drive, on top of browsertest pages. Clicks mutate a shared Shop and
// re-render the page the way a navigation would.
package shoptest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser/browsertest"
	"github.com/xkilldash9x/crosscheck-cli/internal/pages/bo"
	"github.com/xkilldash9x/crosscheck-cli/internal/pages/fo"
)

const (
	Email    = "demo@prestashop.com"
	Password = "prestashop_demo"
	BOURL    = "http://shop.test/admin-dev/"

	InvalidTokenMessage = "Invalid token"
	allowOrderingGroup  = "form[stock][allow_ordering_oos]"
)

// Product is a catalog row of the simulated shop.
type Product struct {
	Name     string
	Type     string
	Quantity string
	Price    string
}

// Shop is the shared state behind every simulated page.
type Shop struct {
	mu           sync.Mutex
	products     []Product
	allowOOS     bool
	deliveryText string
	language     string
	toolbar      bool
	created      int
	deleted      int
	saves        int

	// Fault injection.
	HideDeliveryBlock bool
	DeliveryOverride  string
	SettingsAck       string
	DeleteAck         string
	CreateAck         string
	// BounceSettingsSaves is the number of upcoming settings saves that land
	// on the dashboard with an error instead, as an expired admin token does.
	BounceSettingsSaves int
}

// New returns a shop seeded with baseline catalog rows and the debug toolbar shown.
func New() *Shop {
	s := &Shop{
		language: "fr",
		toolbar:  true,
	}
	for _, name := range []string{"Hummingbird printed t-shirt", "Brown bear printed sweater", "The best is yet to come' Framed poster", "Mug The adventure begins"} {
		s.products = append(s.products, Product{Name: name, Type: "0", Quantity: "300", Price: "19.12"})
	}
	return s
}

// Install makes every page the driver opens land on the login screen.
func (s *Shop) Install(d *browsertest.Driver) {
	d.Setup = s.RenderLogin
}

func (s *Shop) Products() []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Product(nil), s.products...)
}

func (s *Shop) Created() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

func (s *Shop) Deleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleted
}

// SettingsSaves counts submissions of the product stock form.
func (s *Shop) SettingsSaves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *Shop) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// Settings returns the stored out-of-stock settings.
func (s *Shop) Settings() (allow bool, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allowOOS, s.deliveryText
}

func (s *Shop) HasProduct(name string) bool {
	for _, p := range s.Products() {
		if p.Name == name {
			return true
		}
	}
	return false
}

func visible(text string) browsertest.Element {
	return browsertest.Element{Text: text, Visible: true}
}

func value(p *browsertest.Page, selector string) string {
	el, _ := p.Element(selector)
	return el.Value
}

func ack(override, def string) string {
	if override != "" {
		return override
	}
	return def
}

var locales = map[string]string{"en": "en-US", "fr": "fr-FR"}

// RenderLogin shows the back office login form.
func (s *Shop) RenderLogin(p *browsertest.Page) {
	p.Reset().SetTitle("PrestaShop • PrestaShop")
	p.Set(bo.LoginEmailInput, visible(""))
	p.Set(bo.LoginPasswordInput, visible(""))
	p.Set(bo.LoginSubmitButton, visible("Log in"))
	p.OnClick(bo.LoginSubmitButton, func(p *browsertest.Page) error {
		if value(p, bo.LoginEmailInput) != Email || value(p, bo.LoginPasswordInput) != Password {
			p.Set(bo.LoginErrorAlert, visible("Invalid password."))
			return nil
		}
		s.RenderDashboard(p)
		return nil
	})
}

// chrome installs the header and side menu shared by back office screens.
func (s *Shop) chrome(p *browsertest.Page, title string) {
	p.Reset().SetTitle(title + " • PrestaShop")
	for _, sel := range []string{
		bo.CatalogParentLink, bo.ProductsLink, bo.ProductsLink + " a",
		bo.ShopParametersParentLink, bo.ProductSettingsLink, bo.ProductSettingsLink + " a",
	} {
		p.Set(sel, visible(""))
	}
	p.Set(bo.HeaderShopNameLink, visible("PrestaShop"))

	p.OnClick(bo.ProductsLink+" a", func(p *browsertest.Page) error {
		s.RenderProducts(p, "", "")
		return nil
	})
	p.OnClick(bo.ProductSettingsLink+" a", func(p *browsertest.Page) error {
		s.RenderProductSettings(p, "")
		return nil
	})
	p.OnClickOpen(bo.HeaderShopNameLink, s.RenderHome)

	s.mu.Lock()
	toolbar := s.toolbar
	s.mu.Unlock()
	if toolbar {
		p.Set(bo.SfToolbarMainContent, visible(""))
		p.Set(bo.SfToolbarHideButton, visible(""))
		p.OnClick(bo.SfToolbarHideButton, func(p *browsertest.Page) error {
			s.mu.Lock()
			s.toolbar = false
			s.mu.Unlock()
			p.Remove(bo.SfToolbarMainContent)
			p.Remove(bo.SfToolbarHideButton)
			return nil
		})
	}
}

func (s *Shop) RenderDashboard(p *browsertest.Page) {
	s.chrome(p, "Dashboard")
}

func (s *Shop) matching(filter string) []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Product
	for _, prod := range s.products {
		if filter == "" || strings.Contains(strings.ToLower(prod.Name), strings.ToLower(filter)) {
			out = append(out, prod)
		}
	}
	return out
}

// RenderProducts shows Catalog > Products filtered by name, with an optional success alert.
func (s *Shop) RenderProducts(p *browsertest.Page, filter, alert string) {
	s.chrome(p, "Products")
	p.Set(bo.AddNewProductLink, visible("Add new product"))
	p.Set(bo.FilterNameInput, browsertest.Element{Visible: true, Value: filter})
	p.Set(bo.FilterSearchButton, visible("Search"))
	p.Set(bo.CategoryFilterButton, visible("Filter by categories"))
	p.Set(bo.CategoryFilterResetButton, visible("Unselect"))
	if alert != "" {
		p.Set(bo.AlertSuccessText, visible(alert))
	}

	rows := s.matching(filter)
	if len(rows) > 0 {
		p.Set(bo.ProductListRows, browsertest.Element{Visible: true, Matches: len(rows)})
		p.Set(bo.FirstRowDropdownToggle, visible(""))
		p.Set(bo.FirstRowDeleteLink, visible("Delete"))
		p.Set(bo.DeletionModalConfirm, visible("Delete"))
	}
	if filter != "" {
		p.Set(bo.FilterResetButton, visible("Reset"))
		p.OnClick(bo.FilterResetButton, func(p *browsertest.Page) error {
			s.RenderProducts(p, "", "")
			return nil
		})
	}

	p.OnClick(bo.AddNewProductLink, func(p *browsertest.Page) error {
		s.RenderAddProduct(p)
		return nil
	})
	p.OnClick(bo.FilterSearchButton, func(p *browsertest.Page) error {
		s.RenderProducts(p, value(p, bo.FilterNameInput), "")
		return nil
	})
	p.OnClick(bo.CategoryFilterResetButton, func(p *browsertest.Page) error {
		s.RenderProducts(p, filter, "")
		return nil
	})
	p.OnClick(bo.DeletionModalConfirm, func(p *browsertest.Page) error {
		target := rows[0].Name
		s.mu.Lock()
		for i, prod := range s.products {
			if prod.Name == target {
				s.products = append(s.products[:i], s.products[i+1:]...)
				break
			}
		}
		s.deleted++
		msg := ack(s.DeleteAck, bo.ProductDeletedMessage)
		s.mu.Unlock()
		s.RenderProducts(p, filter, msg)
		return nil
	})
}

// RenderAddProduct shows the product creation form.
func (s *Shop) RenderAddProduct(p *browsertest.Page) {
	s.chrome(p, "Product")
	for _, sel := range []string{
		bo.ProductNameInput, bo.ProductTypeSelect, bo.ProductQuantityInput, bo.ProductPriceInput,
		bo.ProductOptionsTab, bo.ProductReferenceInput, bo.ProductOnlineSwitch, bo.SaveProductButton,
	} {
		p.Set(sel, visible(""))
	}
	p.OnClick(bo.SaveProductButton, func(p *browsertest.Page) error {
		prod := Product{
			Name:     value(p, bo.ProductNameInput),
			Type:     value(p, bo.ProductTypeSelect),
			Quantity: value(p, bo.ProductQuantityInput),
			Price:    value(p, bo.ProductPriceInput),
		}
		online, _ := p.Element(bo.ProductOnlineSwitch)
		s.mu.Lock()
		if prod.Name != "" && online.Checked {
			s.products = append(s.products, prod)
			s.created++
		}
		msg := ack(s.CreateAck, bo.SettingsUpdatedMessage)
		s.mu.Unlock()
		p.Set(bo.GrowlMessageText, visible(msg))
		return nil
	})
}

// RenderProductSettings shows Shop Parameters > Product Settings.
func (s *Shop) RenderProductSettings(p *browsertest.Page, alert string) {
	s.chrome(p, bo.ProductSettingsPageTitle)
	s.mu.Lock()
	allow, text := s.allowOOS, s.deliveryText
	s.mu.Unlock()

	p.Set(bo.AllowOrderingOutOfStockToggle(true), browsertest.Element{Visible: true, Checked: allow, Group: allowOrderingGroup})
	p.Set(bo.AllowOrderingOutOfStockToggle(false), browsertest.Element{Visible: true, Checked: !allow, Group: allowOrderingGroup})
	p.Set(bo.DeliveryTimeOutOfStockInput, browsertest.Element{Visible: true, Value: text})
	p.Set(bo.SaveProductsStockButton, visible("Save"))
	if alert != "" {
		p.Set(bo.AlertSuccessText, visible(alert))
	}

	p.OnClick(bo.SaveProductsStockButton, func(p *browsertest.Page) error {
		on, _ := p.Element(bo.AllowOrderingOutOfStockToggle(true))
		s.mu.Lock()
		if s.BounceSettingsSaves > 0 {
			s.BounceSettingsSaves--
			s.mu.Unlock()
			s.RenderDashboard(p)
			p.Set(bo.AlertSuccessText, visible(InvalidTokenMessage))
			return nil
		}
		s.allowOOS = on.Checked
		s.deliveryText = value(p, bo.DeliveryTimeOutOfStockInput)
		s.saves++
		msg := ack(s.SettingsAck, bo.SuccessfulUpdateMessage)
		s.mu.Unlock()
		s.RenderProductSettings(p, msg)
		return nil
	})
}

// storefront installs the header shared by storefront screens.
func (s *Shop) storefront(p *browsertest.Page, title string) {
	p.Reset().SetTitle(title)
	s.mu.Lock()
	lang := locales[s.language]
	s.mu.Unlock()
	p.Set(fo.DocumentRoot, browsertest.Element{Visible: true, Attrs: map[string]string{"lang": lang}})
	p.Set(fo.LanguageSelectorExpand, visible(""))
	p.Set(fo.SearchInput, visible(""))
	for _, iso := range []string{"en", "fr"} {
		p.Set(fo.LanguageMenuItem(iso), visible(iso))
		p.OnClick(fo.LanguageMenuItem(iso), func(p *browsertest.Page) error {
			s.mu.Lock()
			s.language = iso
			s.mu.Unlock()
			s.RenderHome(p)
			return nil
		})
	}
	p.OnPress(fo.SearchInput, func(p *browsertest.Page, key string) error {
		if key == "Enter" {
			s.RenderSearch(p, value(p, fo.SearchInput))
		}
		return nil
	})
}

func (s *Shop) RenderHome(p *browsertest.Page) {
	s.storefront(p, "My Store")
	p.Set(fo.HomePageSection, visible(""))
}

// RenderSearch lists the catalog rows matching query.
func (s *Shop) RenderSearch(p *browsertest.Page, query string) {
	s.storefront(p, "Search")
	found := s.matching(query)
	if len(found) == 0 {
		return
	}
	p.Set(fo.ProductMiniatures, browsertest.Element{Visible: true, Matches: len(found)})
	for i, prod := range found {
		sel := fo.ProductThumbnail(i + 1)
		p.Set(sel, visible(prod.Name))
		p.OnClick(sel, func(p *browsertest.Page) error {
			s.RenderProduct(p, prod)
			return nil
		})
	}
}

// RenderProduct shows the product page. The delivery block renders for an
// out-of-stock product when ordering it is allowed and a label is set.
func (s *Shop) RenderProduct(p *browsertest.Page, prod Product) {
	s.storefront(p, prod.Name)
	s.mu.Lock()
	show := s.allowOOS && s.deliveryText != "" && prod.Quantity == "0" && !s.HideDeliveryBlock
	text := s.deliveryText
	if s.DeliveryOverride != "" {
		text = s.DeliveryOverride
	}
	s.mu.Unlock()
	if show {
		p.Set(fo.DeliveryInformationSpan, visible(fmt.Sprintf("\n\t\t%s\n\t", text)))
	}
}
