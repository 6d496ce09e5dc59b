package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"GSRSwap/internal/domain/models"
	domrepo "GSRSwap/internal/domain/repository"
	applogger "GSRSwap/pkg/logger"
)

// ErrNoPrice is returned when nothing is stored for a symbol.
var ErrNoPrice = errors.New("no stored price")

type priceReader interface {
	domrepo.PriceHistoryProvider
	LatestPrice(ctx context.Context, symbol string) (models.PricePoint, bool, error)
}

// PriceUseCase serves the stored daily closes of metals and macro series.
type PriceUseCase struct {
	store priceReader
	l     *applogger.Logger
	now   func() time.Time
}

func NewPriceUseCase(store priceReader, l *applogger.Logger) *PriceUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	return &PriceUseCase{store: store, l: l, now: time.Now}
}

// Series returns the closes of symbol in [from, to], defaulting to the
// trailing year. An empty range is a NoDataError.
func (uc *PriceUseCase) Series(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, models.NewValidationError("symbol", "symbol is required")
	}
	from, to, err := resolveDayRange(from, to, models.Day(uc.now()))
	if err != nil {
		return nil, err
	}
	points, err := uc.store.GetSeries(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", symbol, err)
	}
	if len(points) == 0 {
		return nil, &models.NoDataError{Start: from, End: to}
	}
	return points, nil
}

// Latest returns the most recent close of symbol.
func (uc *PriceUseCase) Latest(ctx context.Context, symbol string) (*models.PricePoint, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, models.NewValidationError("symbol", "symbol is required")
	}
	p, ok, err := uc.store.LatestPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("latest %s: %w", symbol, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoPrice, symbol)
	}
	return &p, nil
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
