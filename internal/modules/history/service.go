package history

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/deep-trader/internal/clients/yahoo"
	"github.com/aristath/deep-trader/internal/domain"
)

// Service resolves price series for training and evaluation.
//
// Resolution order: local CSV file under the data directory, then the
// database cache, then a Yahoo Finance fetch (which also warms the cache).
type Service struct {
	repo    *PriceRepository
	client  *yahoo.Client
	dataDir string
	log     zerolog.Logger
}

// NewService creates a new history service
func NewService(repo *PriceRepository, client *yahoo.Client, dataDir string, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		client:  client,
		dataDir: dataDir,
		log:     log.With().Str("service", "history").Logger(),
	}
}

// GetSeries returns the daily adjusted-close series for a symbol, oldest
// first.
func (s *Service) GetSeries(symbol string) ([]domain.PricePoint, error) {
	csvPath := filepath.Join(s.dataDir, symbol+".csv")
	if _, err := os.Stat(csvPath); err == nil {
		series, err := LoadCSV(csvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", csvPath, err)
		}
		s.log.Debug().Str("symbol", symbol).Int("points", len(series)).Msg("Loaded series from CSV")
		return series, nil
	}

	series, err := s.repo.Get(symbol)
	if err != nil {
		return nil, err
	}
	if len(series) > 0 {
		s.log.Debug().Str("symbol", symbol).Int("points", len(series)).Msg("Loaded series from cache")
		return series, nil
	}

	if s.client == nil {
		return nil, fmt.Errorf("no price data for %s: no CSV, empty cache, remote fetch disabled", symbol)
	}

	series, err = s.client.GetDailyHistory(symbol, "2y")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no price data available for %s", symbol)
	}

	if err := s.repo.Save(symbol, series); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache fetched series")
	}

	return series, nil
}

// Closes extracts the adjusted-close values from a series.
func Closes(series []domain.PricePoint) []float64 {
	prices := make([]float64, len(series))
	for i, p := range series {
		prices[i] = p.AdjClose
	}
	return prices
}
