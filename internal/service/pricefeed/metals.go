package pricefeed

import (
	"context"
	"sort"
	"strconv"
	"time"

	"GSRSwap/internal/domain/models"
)

const metalsSource = "AlphaVantage"

// MetalsClient reads daily gold and silver closes in USD from the Alpha
// Vantage FX_DAILY endpoint.
type MetalsClient struct {
	base   *HTTPServiceBase
	apiKey string
}

func NewMetalsClient(base *HTTPServiceBase, apiKey string) *MetalsClient {
	return &MetalsClient{base: base, apiKey: apiKey}
}

type fxDailyResponse struct {
	Series       map[string]map[string]string `json:"Time Series FX (Daily)"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
	ErrorMessage string                       `json:"Error Message"`
}

func (c *MetalsClient) GetSeries(ctx context.Context, symbol string, start, end time.Time) ([]models.PricePoint, error) {
	query := map[string][]string{
		"function":    {"FX_DAILY"},
		"from_symbol": {symbol},
		"to_symbol":   {"USD"},
		"outputsize":  {"full"},
		"apikey":      {c.apiKey},
	}

	var resp fxDailyResponse
	if err := c.base.GetJSON(ctx, "/query", query, &resp); err != nil {
		return nil, err
	}
	switch {
	case resp.ErrorMessage != "":
		return nil, &UpstreamError{Upstream: metalsSource, Message: resp.ErrorMessage}
	case resp.Note != "":
		return nil, &UpstreamError{Upstream: metalsSource, Message: resp.Note, Throttled: true}
	case resp.Series == nil && resp.Information != "":
		return nil, &UpstreamError{Upstream: metalsSource, Message: resp.Information, Throttled: true}
	}

	from, to := models.Day(start), models.Day(end)
	out := make([]models.PricePoint, 0, len(resp.Series))
	for date, bar := range resp.Series {
		day, err := time.Parse(time.DateOnly, date)
		if err != nil {
			continue
		}
		if (!start.IsZero() && day.Before(from)) || (!end.IsZero() && day.After(to)) {
			continue
		}
		closePx, err := strconv.ParseFloat(bar["4. close"], 64)
		if err != nil || closePx <= 0 {
			continue
		}
		out = append(out, models.PricePoint{Timestamp: day, Symbol: symbol, Price: closePx, Source: metalsSource})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
