// Package fo contains the storefront page objects.
package fo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
	"github.com/xkilldash9x/crosscheck-cli/internal/pages"
)

const (
	HomePageSection           = "section#content.page-home"
	LanguageSelector          = "#_desktop_language_selector"
	LanguageSelectorExpand    = LanguageSelector + " button[data-toggle='dropdown']"
	SearchInput               = "#search_widget input[name='s']"
	DocumentRoot              = "html"
	homePageVisibilityTimeout = 2 * time.Second
)

func LanguageMenuItem(iso string) string {
	return fmt.Sprintf("%s ul li a[data-iso-code='%s']", LanguageSelector, iso)
}

type HomePage struct {
	pages.Base
}

func NewHomePage(page browser.Page) *HomePage {
	return &HomePage{Base: pages.NewBase(page)}
}

// ChangeLanguage switches the storefront to the language with the given ISO code.
func (h *HomePage) ChangeLanguage(ctx context.Context, iso string) error {
	if err := h.Page.Click(ctx, LanguageSelectorExpand); err != nil {
		return err
	}
	return h.ClickAndWait(ctx, LanguageMenuItem(iso))
}

// Language returns the ISO code of the language the storefront renders in,
// read from the lang attribute of the document (e.g. "en" for "en-US").
func (h *HomePage) Language(ctx context.Context) (string, error) {
	lang, err := h.Page.Attribute(ctx, DocumentRoot, "lang")
	if err != nil {
		return "", err
	}
	iso, _, _ := strings.Cut(lang, "-")
	return strings.ToLower(iso), nil
}

func (h *HomePage) IsHomePage(ctx context.Context) (bool, error) {
	return h.ElementVisible(ctx, HomePageSection, homePageVisibilityTimeout)
}

// SearchProduct submits name in the header search box.
func (h *HomePage) SearchProduct(ctx context.Context, name string) error {
	if err := h.Page.Fill(ctx, SearchInput, name); err != nil {
		return err
	}
	if err := h.Page.Press(ctx, SearchInput, "Enter"); err != nil {
		return err
	}
	return h.Page.WaitLoaded(ctx)
}
