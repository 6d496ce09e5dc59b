package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"GSRSwap/internal/domain/models"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBase(t *testing.T, url string, failures uint32) *HTTPServiceBase {
	t.Helper()
	return NewHTTPServiceBase(BaseConfig{
		Name:            "test",
		BaseURL:         url,
		Timeout:         2 * time.Second,
		Attempts:        3,
		Backoff:         time.Millisecond,
		BreakerFailures: failures,
		BreakerTimeout:  time.Minute,
	}, nil, nil)
}

func day(s string) time.Time {
	d, _ := time.Parse(time.DateOnly, s)
	return d
}

func TestFREDClientSkipsMissingValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/series/observations", r.URL.Path)
		assert.Equal(t, "DGS10", r.URL.Query().Get("series_id"))
		assert.Equal(t, "key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("observation_start"))
		_, _ = w.Write([]byte(`{"observations":[
			{"date":"2024-01-02","value":"3.95"},
			{"date":"2024-01-03","value":"."},
			{"date":"2024-01-04","value":"3.99"}]}`))
	}))
	defer srv.Close()

	c := NewFREDClient(newBase(t, srv.URL, 5), "key")
	points, err := c.GetSeries(context.Background(), "DGS10", day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 3.95, points[0].Price)
	assert.Equal(t, day("2024-01-04"), points[1].Timestamp)
	assert.Equal(t, "FRED", points[1].Source)
}

func TestMetalsClientFiltersAndSorts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "FX_DAILY", r.URL.Query().Get("function"))
		assert.Equal(t, models.SymbolGold, r.URL.Query().Get("from_symbol"))
		_, _ = w.Write([]byte(`{"Time Series FX (Daily)":{
			"2024-01-05":{"4. close":"2050.5"},
			"2024-01-03":{"4. close":"2040.0"},
			"2023-12-29":{"4. close":"2060.0"},
			"2024-01-04":{"4. close":"bad"}}}`))
	}))
	defer srv.Close()

	c := NewMetalsClient(newBase(t, srv.URL, 5), "key")
	points, err := c.GetSeries(context.Background(), models.SymbolGold, day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, day("2024-01-03"), points[0].Timestamp)
	assert.Equal(t, 2050.5, points[1].Price)
}

func TestMetalsClientReportsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Error Message":"Invalid API call"}`))
	}))
	defer srv.Close()

	c := NewMetalsClient(newBase(t, srv.URL, 5), "key")
	_, err := c.GetSeries(context.Background(), models.SymbolSilver, time.Time{}, time.Time{})
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.False(t, ue.Throttled)
}

func TestBaseRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"observations":[]}`))
	}))
	defer srv.Close()

	var resp fredResponse
	err := newBase(t, srv.URL, 10).GetJSON(context.Background(), "/x", nil, &resp)
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestBaseDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	b := newBase(t, srv.URL, 1)
	for i := 0; i < 3; i++ {
		err := b.GetJSON(context.Background(), "/x", nil, nil)
		require.Error(t, err)
	}
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Equal(t, gobreaker.StateClosed.String(), b.BreakerState())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b := newBase(t, srv.URL, 2)
	err := b.GetJSON(context.Background(), "/x", nil, nil)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	assert.Equal(t, gobreaker.StateOpen.String(), b.BreakerState())
}

type stubProvider struct{ name string }

func (s stubProvider) GetSeries(_ context.Context, symbol string, _, _ time.Time) ([]models.PricePoint, error) {
	return []models.PricePoint{{Symbol: symbol, Source: s.name}}, nil
}

func TestRouterPicksUpstreamBySymbol(t *testing.T) {
	r := NewRouter(stubProvider{"metals"}, stubProvider{"macro"})
	ctx := context.Background()

	p, err := r.GetSeries(ctx, models.SymbolSilver, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "metals", p[0].Source)

	p, err = r.GetSeries(ctx, "VIXCLS", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "macro", p[0].Source)

	_, err = NewRouter(nil, stubProvider{"macro"}).GetSeries(ctx, models.SymbolGold, time.Time{}, time.Time{})
	assert.Error(t, err)
}
