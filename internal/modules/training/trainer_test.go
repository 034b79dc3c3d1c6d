package training

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/deep-trader/internal/domain"
	"github.com/aristath/deep-trader/internal/modules/dqn"
)

func testAgent(t *testing.T, window int) *dqn.Agent {
	t.Helper()
	agent, err := dqn.New(dqn.Config{
		Strategy:     domain.StrategyDouble,
		Window:       window,
		Hidden:       []int{8},
		Capacity:     256,
		BatchSize:    8,
		Gamma:        0.95,
		Epsilon:      1.0,
		EpsilonDecay: 0.9,
		EpsilonMin:   0.01,
		SyncEvery:    10,
		LearningRate: 0.01,
		Seed:         7,
	}, zerolog.Nop())
	require.NoError(t, err)
	return agent
}

func TestExecute_RealizesFIFOProfit(t *testing.T) {
	tr := NewTrainer(testAgent(t, 3), 3, nil, zerolog.Nop())
	inv := NewInventory()
	var trades int

	// Buy at 102, hold, sell at 105.
	assert.Zero(t, tr.execute(domain.ActionBuy, 102, inv, &trades))
	assert.Zero(t, tr.execute(domain.ActionHold, 103, inv, &trades))
	reward := tr.execute(domain.ActionSell, 105, inv, &trades)

	assert.Equal(t, 3.0, reward)
	assert.Equal(t, 2, trades)
	assert.Zero(t, inv.Open())
}

func TestExecute_SellAlwaysPairsWithEarliestBuy(t *testing.T) {
	tr := NewTrainer(testAgent(t, 3), 3, nil, zerolog.Nop())
	inv := NewInventory()
	var trades int

	tr.execute(domain.ActionBuy, 100, inv, &trades)
	tr.execute(domain.ActionBuy, 104, inv, &trades)

	assert.Equal(t, 10.0, tr.execute(domain.ActionSell, 110, inv, &trades))
	assert.Equal(t, 6.0, tr.execute(domain.ActionSell, 110, inv, &trades))
}

func TestExecute_SellOnEmptyInventoryIsNoOp(t *testing.T) {
	tr := NewTrainer(testAgent(t, 3), 3, nil, zerolog.Nop())
	inv := NewInventory()
	var trades int

	reward := tr.execute(domain.ActionSell, 100, inv, &trades)

	assert.Zero(t, reward)
	assert.Zero(t, trades)
}

func TestRunEpisode(t *testing.T) {
	agent := testAgent(t, 4)
	tr := NewTrainer(agent, 4, nil, zerolog.Nop())

	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + float64(i%7)
	}

	result, err := tr.RunEpisode(prices, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Episode)
	assert.Positive(t, result.LearnSteps, "a 40-step episode must run learning updates")
	assert.Equal(t, result.LearnSteps, agent.LearnSteps())
	assert.InDelta(t, 0.9, result.Epsilon, 1e-12, "epsilon decays once per episode")
	assert.Equal(t, agent.Epsilon(), result.Epsilon, "result reports the post-decay epsilon")
	assert.GreaterOrEqual(t, agent.Memory().Len(), len(prices))
}

func TestRunEpisode_PortfolioValueMarksOpenPositions(t *testing.T) {
	agent := testAgent(t, 3)
	agent.SetEpsilon(0)
	tr := NewTrainer(agent, 3, nil, zerolog.Nop())

	prices := []float64{100, 101, 102, 103, 104, 105}
	result, err := tr.RunEpisode(prices, 1)
	require.NoError(t, err)

	// Realized reward plus open positions marked to the last price never
	// loses money on a monotonically rising series.
	assert.GreaterOrEqual(t, result.PortfolioValue, result.TotalReward-1e-9)
}

func TestTrain_RunsHookEveryEpisode(t *testing.T) {
	agent := testAgent(t, 3)
	tr := NewTrainer(agent, 3, nil, zerolog.Nop())

	prices := []float64{100, 102, 101, 103, 105, 104, 106, 108}

	var episodes []int
	hook := func(result domain.EpisodeResult, checkpoint []byte) error {
		episodes = append(episodes, result.Episode)
		assert.NotEmpty(t, checkpoint)
		return nil
	}

	require.NoError(t, tr.Train(context.Background(), prices, 3, hook))
	assert.Equal(t, []int{1, 2, 3}, episodes)
}

func TestTrain_StopsOnCancelledContext(t *testing.T) {
	tr := NewTrainer(testAgent(t, 3), 3, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tr.Train(ctx, []float64{100, 101, 102}, 5, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrain_RejectsShortSeries(t *testing.T) {
	tr := NewTrainer(testAgent(t, 3), 3, nil, zerolog.Nop())

	err := tr.Train(context.Background(), []float64{100}, 1, nil)
	assert.Error(t, err)
}
