package training

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/deep-trader/internal/database"
	"github.com/aristath/deep-trader/internal/domain"
)

func testRepo(t *testing.T) *RunRepository {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return NewRunRepository(db.Conn(), zerolog.Nop())
}

func TestRunRepository_RunLifecycle(t *testing.T) {
	repo := testRepo(t)

	id, err := repo.CreateRun("AAPL", "double", 10, 50)
	require.NoError(t, err)
	require.Positive(t, id)

	run, err := repo.GetRun(id)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "AAPL", run.Symbol)
	assert.Equal(t, "double", run.Strategy)
	assert.Equal(t, 10, run.Window)
	assert.Equal(t, 50, run.Episodes)
	assert.Equal(t, domain.RunStatusRunning, run.Status)
	assert.Nil(t, run.FinishedAt)

	require.NoError(t, repo.FinishRun(id, domain.RunStatusCompleted))

	run, err = repo.GetRun(id)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.NotNil(t, run.FinishedAt)
}

func TestRunRepository_GetRunMissing(t *testing.T) {
	repo := testRepo(t)

	run, err := repo.GetRun(12345)
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestRunRepository_ListRuns(t *testing.T) {
	repo := testRepo(t)

	for _, symbol := range []string{"AAPL", "MSFT", "GOOG"} {
		_, err := repo.CreateRun(symbol, "vanilla", 10, 5)
		require.NoError(t, err)
	}

	runs, err := repo.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = repo.ListRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestRunRepository_Episodes(t *testing.T) {
	repo := testRepo(t)

	id, err := repo.CreateRun("AAPL", "double", 10, 2)
	require.NoError(t, err)

	for episode := 1; episode <= 2; episode++ {
		require.NoError(t, repo.SaveEpisode(id, domain.EpisodeResult{
			Episode:        episode,
			TotalReward:    float64(episode) * 1.5,
			PortfolioValue: float64(episode) * 2,
			Trades:         episode * 3,
			MeanLoss:       0.1,
			MaxLoss:        0.4,
			LearnSteps:     episode * 10,
			Epsilon:        1.0 / float64(episode),
		}))
	}

	results, err := repo.ListEpisodes(id)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Episode)
	assert.Equal(t, 2, results[1].Episode)
	assert.Equal(t, 3.0, results[1].TotalReward)
	assert.Equal(t, 6, results[1].Trades)
}

func TestRunRepository_CheckpointUpsert(t *testing.T) {
	repo := testRepo(t)

	id, err := repo.CreateRun("AAPL", "fixed_target", 10, 3)
	require.NoError(t, err)

	blob, err := repo.GetCheckpoint(id)
	require.NoError(t, err)
	assert.Nil(t, blob, "no checkpoint saved yet")

	require.NoError(t, repo.SaveCheckpoint(id, 1, []byte("first")))
	require.NoError(t, repo.SaveCheckpoint(id, 2, []byte("second")))

	blob, err = repo.GetCheckpoint(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), blob, "latest checkpoint wins")
}
