package bo

import (
	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
)

// DashboardPageTitle is contained in the title of the dashboard.
const DashboardPageTitle = "Dashboard"

type DashboardPage struct {
	Common
}

func NewDashboardPage(page browser.Page) *DashboardPage {
	return &DashboardPage{Common: NewCommon(page)}
}
