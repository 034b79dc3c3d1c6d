package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/deep-trader/internal/database"
	"github.com/aristath/deep-trader/internal/domain"
)

func testPriceRepo(t *testing.T) *PriceRepository {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return NewPriceRepository(db.Conn(), zerolog.Nop())
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestPriceRepository_SaveAndGet(t *testing.T) {
	repo := testPriceRepo(t)

	// Insert out of order; Get returns chronological.
	require.NoError(t, repo.Save("AAPL", []domain.PricePoint{
		{Date: day(3), AdjClose: 102},
		{Date: day(1), AdjClose: 100},
		{Date: day(2), AdjClose: 101},
	}))

	series, err := repo.Get("AAPL")
	require.NoError(t, err)

	require.Len(t, series, 3)
	assert.Equal(t, 100.0, series[0].AdjClose)
	assert.Equal(t, 101.0, series[1].AdjClose)
	assert.Equal(t, 102.0, series[2].AdjClose)
	assert.Equal(t, day(1), series[0].Date)
}

func TestPriceRepository_SaveUpserts(t *testing.T) {
	repo := testPriceRepo(t)

	require.NoError(t, repo.Save("AAPL", []domain.PricePoint{{Date: day(1), AdjClose: 100}}))
	require.NoError(t, repo.Save("AAPL", []domain.PricePoint{{Date: day(1), AdjClose: 99.5}}))

	series, err := repo.Get("AAPL")
	require.NoError(t, err)

	require.Len(t, series, 1)
	assert.Equal(t, 99.5, series[0].AdjClose)
}

func TestPriceRepository_SymbolsAreIsolated(t *testing.T) {
	repo := testPriceRepo(t)

	require.NoError(t, repo.Save("AAPL", []domain.PricePoint{{Date: day(1), AdjClose: 100}}))

	series, err := repo.Get("MSFT")
	require.NoError(t, err)
	assert.Empty(t, series)
}
