package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/deep-trader/internal/domain"
)

// PriceRepository caches daily price series in the local database
type PriceRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *sql.DB, log zerolog.Logger) *PriceRepository {
	return &PriceRepository{
		db:  db,
		log: log.With().Str("repo", "price").Logger(),
	}
}

// Save upserts a price series for a symbol
func (r *PriceRepository) Save(symbol string, series []domain.PricePoint) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO prices (symbol, date, adj_close)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET adj_close = excluded.adj_close
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range series {
		if _, err := stmt.Exec(symbol, p.Date.Format("2006-01-02"), p.AdjClose); err != nil {
			return fmt.Errorf("failed to insert price: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prices: %w", err)
	}

	r.log.Debug().Str("symbol", symbol).Int("points", len(series)).Msg("Price series saved")
	return nil
}

// Get retrieves a cached price series in chronological order.
// Returns an empty slice when the symbol has no cached prices.
func (r *PriceRepository) Get(symbol string) ([]domain.PricePoint, error) {
	rows, err := r.db.Query(`
		SELECT date, adj_close FROM prices
		WHERE symbol = ?
		ORDER BY date
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var series []domain.PricePoint
	for rows.Next() {
		var dateStr string
		var price float64
		if err := rows.Scan(&dateStr, &price); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}

		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("invalid date in prices table: %w", err)
		}
		series = append(series, domain.PricePoint{Date: date, AdjClose: price})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}
	return series, nil
}
