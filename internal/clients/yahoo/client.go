package yahoo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/deep-trader/internal/domain"
)

// Client is a Yahoo Finance API client
type Client struct {
	client *http.Client
	log    zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// GetYahooSymbol converts a broker symbol to a Yahoo Finance symbol
//
// Examples:
//
//	AAPL.US -> AAPL
//	BASF.DE -> BASF.DE
//	7203.JP -> 7203.T (Toyota)
func GetYahooSymbol(symbol string) string {
	if strings.HasSuffix(symbol, ".US") {
		return strings.TrimSuffix(symbol, ".US")
	}

	if strings.HasSuffix(symbol, ".JP") {
		// Japanese stocks use .T suffix on Yahoo
		return strings.TrimSuffix(symbol, ".JP") + ".T"
	}

	return symbol
}

// GetDailyHistory fetches daily adjusted closes from the Yahoo Finance chart
// API, oldest first. When the response carries no adjclose series the raw
// close is used instead.
//
// Supports periods: 1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max
func (c *Client) GetDailyHistory(symbol string, period string) ([]domain.PricePoint, error) {
	yfSymbol := GetYahooSymbol(symbol)

	baseURL := "https://query1.finance.yahoo.com/v8/finance/chart/" + url.QueryEscape(yfSymbol)

	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("range", period)

	req, err := http.NewRequest("GET", baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to mimic browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch historical data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Yahoo Finance API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result struct {
		Chart struct {
			Result []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close []float64 `json:"close"`
					} `json:"quote"`
					AdjClose []struct {
						AdjClose []float64 `json:"adjclose"`
					} `json:"adjclose"`
				} `json:"indicators"`
			} `json:"result"`
			Error interface{} `json:"error"`
		} `json:"chart"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance API error: %v", result.Chart.Error)
	}

	if len(result.Chart.Result) == 0 {
		c.log.Warn().Str("symbol", symbol).Msg("No historical data returned")
		return []domain.PricePoint{}, nil
	}

	chartData := result.Chart.Result[0]
	if len(chartData.Indicators.Quote) == 0 {
		c.log.Warn().Str("symbol", symbol).Msg("No quote data in response")
		return []domain.PricePoint{}, nil
	}

	closes := chartData.Indicators.Quote[0].Close
	if len(chartData.Indicators.AdjClose) > 0 && len(chartData.Indicators.AdjClose[0].AdjClose) == len(closes) {
		closes = chartData.Indicators.AdjClose[0].AdjClose
	}

	var prices []domain.PricePoint
	for i, ts := range chartData.Timestamp {
		if i >= len(closes) || closes[i] == 0 {
			continue // skip null values
		}
		prices = append(prices, domain.PricePoint{
			Date:     time.Unix(ts, 0).UTC(),
			AdjClose: closes[i],
		})
	}

	c.log.Debug().
		Str("symbol", symbol).
		Int("points", len(prices)).
		Msg("Fetched daily history")

	return prices, nil
}
