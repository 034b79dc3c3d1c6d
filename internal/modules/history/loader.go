package history

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/deep-trader/internal/domain"
)

// LoadCSV reads a daily price series from a CSV file, oldest first.
//
// Accepts both a plain two-column (date, adj_close) layout and the Yahoo
// download layout (Date,Open,High,Low,Close,Adj Close,Volume); the adjusted
// close column is located by header name, falling back to Close.
func LoadCSV(path string) ([]domain.PricePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read price file %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("price file %s has no data rows", path)
	}

	header := records[0]
	dateCol, priceCol := locateColumns(header)
	if dateCol < 0 || priceCol < 0 {
		return nil, fmt.Errorf("price file %s has no recognizable date/close columns", path)
	}

	var series []domain.PricePoint
	for i, row := range records[1:] {
		if len(row) <= dateCol || len(row) <= priceCol {
			continue
		}

		date, err := parseDate(row[dateCol])
		if err != nil {
			return nil, fmt.Errorf("price file %s row %d: %w", path, i+2, err)
		}

		raw := strings.TrimSpace(row[priceCol])
		if raw == "" || raw == "null" {
			continue // gaps happen on halted days
		}
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("price file %s row %d: invalid close %q", path, i+2, raw)
		}

		series = append(series, domain.PricePoint{Date: date, AdjClose: price})
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("price file %s has no usable rows", path)
	}
	return series, nil
}

// locateColumns finds the date and adjusted-close column indices by header
// name. Returns (-1, -1) style markers when a column cannot be found.
func locateColumns(header []string) (dateCol, priceCol int) {
	dateCol, priceCol = -1, -1
	closeCol := -1

	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date":
			dateCol = i
		case "adj close", "adj_close", "adjclose":
			priceCol = i
		case "close":
			closeCol = i
		}
	}

	if priceCol < 0 {
		priceCol = closeCol
	}
	return dateCol, priceCol
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02", "2006/01/02", "01/02/2006"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}
