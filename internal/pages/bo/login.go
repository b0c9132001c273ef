package bo

import (
	"context"
	"strings"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
)

const (
	LoginEmailInput    = "#email"
	LoginPasswordInput = "#passwd"
	LoginSubmitButton  = "#submit_login"
	LoginErrorAlert    = "#error"
)

// LoginPageTitle is contained in the title of the login page.
const LoginPageTitle = "PrestaShop"

type LoginPage struct {
	Common
}

func NewLoginPage(page browser.Page) *LoginPage {
	return &LoginPage{Common: NewCommon(page)}
}

// Open navigates to the back office URL, which lands on the login form.
func (p *LoginPage) Open(ctx context.Context, boURL string) error {
	return p.Page.Goto(ctx, boURL)
}

// Login submits the credentials and waits for the dashboard to load.
func (p *LoginPage) Login(ctx context.Context, email, password string) error {
	if err := p.Page.Fill(ctx, LoginEmailInput, email); err != nil {
		return err
	}
	if err := p.Page.Fill(ctx, LoginPasswordInput, password); err != nil {
		return err
	}
	return p.ClickAndWait(ctx, LoginSubmitButton)
}

// IsLoginPage reports whether the page shows the back office login form.
func (p *LoginPage) IsLoginPage(ctx context.Context) (bool, error) {
	title, err := p.PageTitle(ctx)
	if err != nil {
		return false, err
	}
	return strings.Contains(title, LoginPageTitle), nil
}

// LoginRejected reports whether the form shows an error after a submit.
func (p *LoginPage) LoginRejected(ctx context.Context) (bool, error) {
	return p.Page.IsVisible(ctx, LoginErrorAlert)
}
