package pricefeed

import (
	"context"
	"strconv"
	"time"

	"GSRSwap/internal/domain/models"
	applogger "GSRSwap/pkg/logger"
)

const fredSource = "FRED"

// FREDClient reads daily macro series from the FRED observations API.
type FREDClient struct {
	base   *HTTPServiceBase
	apiKey string
}

func NewFREDClient(base *HTTPServiceBase, apiKey string) *FREDClient {
	return &FREDClient{base: base, apiKey: apiKey}
}

type fredResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
	ErrorMessage string `json:"error_message"`
}

// GetSeries returns observations of series symbol in [start, end]. FRED marks
// missing days with "."; those are skipped.
func (c *FREDClient) GetSeries(ctx context.Context, symbol string, start, end time.Time) ([]models.PricePoint, error) {
	query := map[string][]string{
		"series_id": {symbol},
		"api_key":   {c.apiKey},
		"file_type": {"json"},
	}
	if !start.IsZero() {
		query["observation_start"] = []string{start.UTC().Format(time.DateOnly)}
	}
	if !end.IsZero() {
		query["observation_end"] = []string{end.UTC().Format(time.DateOnly)}
	}

	var resp fredResponse
	if err := c.base.GetJSON(ctx, "/series/observations", query, &resp); err != nil {
		return nil, err
	}
	if resp.ErrorMessage != "" {
		return nil, &UpstreamError{Upstream: fredSource, Message: resp.ErrorMessage}
	}

	out := make([]models.PricePoint, 0, len(resp.Observations))
	skipped := 0
	for _, o := range resp.Observations {
		day, err := time.Parse(time.DateOnly, o.Date)
		if err != nil {
			skipped++
			continue
		}
		v, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, models.PricePoint{Timestamp: day, Symbol: symbol, Price: v, Source: fredSource})
	}
	c.base.l.Debug("fred series fetched",
		applogger.String("series", symbol),
		applogger.Int("points", len(out)),
		applogger.Int("skipped", skipped),
	)
	return out, nil
}
