package pricefeed

import (
	"context"
	"fmt"
	"time"

	"GSRSwap/internal/domain/models"
	domrepo "GSRSwap/internal/domain/repository"
)

// Router sends metal symbols to the metals upstream and everything else to
// the macro upstream.
type Router struct {
	metals domrepo.PriceHistoryProvider
	macro  domrepo.PriceHistoryProvider
}

func NewRouter(metals, macro domrepo.PriceHistoryProvider) *Router {
	return &Router{metals: metals, macro: macro}
}

func (r *Router) GetSeries(ctx context.Context, symbol string, start, end time.Time) ([]models.PricePoint, error) {
	p := r.macro
	if symbol == models.SymbolGold || symbol == models.SymbolSilver {
		p = r.metals
	}
	if p == nil {
		return nil, fmt.Errorf("no upstream configured for %s", symbol)
	}
	return p.GetSeries(ctx, symbol, start, end)
}

var (
	_ domrepo.PriceHistoryProvider = (*Router)(nil)
	_ domrepo.PriceHistoryProvider = (*FREDClient)(nil)
	_ domrepo.PriceHistoryProvider = (*MetalsClient)(nil)
)
