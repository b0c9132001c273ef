package fo

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
	"github.com/xkilldash9x/crosscheck-cli/internal/pages"
)

const ProductMiniatures = "#js-product-list .products article.product-miniature"

func ProductThumbnail(n int) string {
	return fmt.Sprintf("#js-product-list .products div.js-product:nth-child(%d) article a.thumbnail", n)
}

type SearchResultsPage struct {
	pages.Base
}

func NewSearchResultsPage(page browser.Page) *SearchResultsPage {
	return &SearchResultsPage{Base: pages.NewBase(page)}
}

// ResultCount returns how many products the search found.
func (s *SearchResultsPage) ResultCount(ctx context.Context) (int, error) {
	return s.Page.Count(ctx, ProductMiniatures)
}

// GoToProductPage opens the n-th result, counting from 1.
func (s *SearchResultsPage) GoToProductPage(ctx context.Context, n int) error {
	if n < 1 {
		return fmt.Errorf("result position must start at 1, got %d", n)
	}
	return s.ClickAndWait(ctx, ProductThumbnail(n))
}
