package usecase

import (
	"context"
	"testing"
	"time"

	"GSRSwap/internal/domain/models"
	"GSRSwap/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrices(store *repository.MemoryStore) *PriceUseCase {
	uc := NewPriceUseCase(store, nil)
	uc.now = fixedNow
	return uc
}

func TestPriceSeriesDefaultsToTrailingYear(t *testing.T) {
	uc := newTestPrices(seededStore(500, constant(80)))

	got, err := uc.Series(context.Background(), "xau", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 366)
	assert.Equal(t, models.SymbolGold, got[0].Symbol)
	assert.Equal(t, models.Day(testToday), got[len(got)-1].Timestamp)

	from := models.Day(testToday).AddDate(0, 0, -2)
	got, err = uc.Series(context.Background(), models.SymbolSilver, from, testToday)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestPriceSeriesErrors(t *testing.T) {
	uc := newTestPrices(seededStore(10, constant(80)))
	ctx := context.Background()

	_, err := uc.Series(ctx, " ", time.Time{}, time.Time{})
	assert.True(t, models.IsValidationError(err))

	_, err = uc.Series(ctx, models.SymbolGold, testToday, testToday.AddDate(0, 0, -5))
	assert.True(t, models.IsValidationError(err))

	_, err = uc.Series(ctx, models.MacroVIX, time.Time{}, time.Time{})
	assert.True(t, models.IsNoData(err))
}

func TestPriceLatest(t *testing.T) {
	uc := newTestPrices(seededStore(10, constant(80)))

	p, err := uc.Latest(context.Background(), "xag")
	require.NoError(t, err)
	assert.Equal(t, models.Day(testToday), p.Timestamp)
	assert.Equal(t, 25.0, p.Price)

	_, err = uc.Latest(context.Background(), models.MacroVIX)
	assert.ErrorIs(t, err, ErrNoPrice)
}
