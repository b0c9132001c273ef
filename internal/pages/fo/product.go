package fo

import (
	"context"
	"time"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
	"github.com/xkilldash9x/crosscheck-cli/internal/pages"
)

const (
	DeliveryInformationSpan = "span.delivery-information"
	deliveryInformationWait = time.Second
)

type ProductPage struct {
	pages.Base
}

func NewProductPage(page browser.Page) *ProductPage {
	return &ProductPage{Base: pages.NewBase(page)}
}

// IsDeliveryInformationVisible reports whether the delivery time block is shown.
func (p *ProductPage) IsDeliveryInformationVisible(ctx context.Context) (bool, error) {
	return p.ElementVisible(ctx, DeliveryInformationSpan, deliveryInformationWait)
}

// DeliveryInformationText returns the delivery time label with whitespace normalized.
func (p *ProductPage) DeliveryInformationText(ctx context.Context) (string, error) {
	return p.TextContent(ctx, DeliveryInformationSpan)
}
