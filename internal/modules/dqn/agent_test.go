package dqn

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/deep-trader/internal/domain"
)

func testAgentConfig(strategy domain.Strategy) Config {
	return Config{
		Strategy:     strategy,
		Window:       4,
		Hidden:       []int{8},
		Capacity:     64,
		BatchSize:    4,
		Gamma:        0.95,
		Epsilon:      0,
		EpsilonDecay: 0.99,
		EpsilonMin:   0.01,
		SyncEvery:    3,
		LearningRate: 0.01,
		Seed:         42,
	}
}

func testAgent(t *testing.T, strategy domain.Strategy) *Agent {
	t.Helper()
	a, err := New(testAgentConfig(strategy), zerolog.Nop())
	require.NoError(t, err)
	return a
}

func fillMemory(a *Agent, n int) {
	for i := 0; i < n; i++ {
		v := float64(i%10) / 10
		a.Remember(Transition{
			State:     []float64{v, v, v, v},
			Action:    domain.Action(i % domain.NumActions),
			Reward:    v,
			NextState: []float64{v, v, v, 1 - v},
		})
	}
}

func TestAgent_GreedyActionDeterministic(t *testing.T) {
	state := []float64{0.2, 0.4, 0.6, 0.8}

	a := testAgent(t, domain.StrategyDouble)
	first, err := a.GreedyAction(state)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		action, err := a.GreedyAction(state)
		require.NoError(t, err)
		assert.Equal(t, first, action)
	}

	// A freshly-built agent with the same seed picks the same action.
	b := testAgent(t, domain.StrategyDouble)
	action, err := b.GreedyAction(state)
	require.NoError(t, err)
	assert.Equal(t, first, action)
}

func TestAgent_SelectActionWithZeroEpsilonIsGreedy(t *testing.T) {
	a := testAgent(t, domain.StrategyVanilla)
	state := []float64{0.1, 0.3, 0.5, 0.7}

	greedy, err := a.GreedyAction(state)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		action, err := a.SelectAction(state)
		require.NoError(t, err)
		assert.Equal(t, greedy, action)
	}
}

func TestAgent_LearnSkippedWhileWarmingUp(t *testing.T) {
	a := testAgent(t, domain.StrategyVanilla)
	fillMemory(a, 3) // one short of the batch size

	loss, learned, err := a.Learn()
	require.NoError(t, err)
	assert.False(t, learned)
	assert.Zero(t, loss)
	assert.Zero(t, a.LearnSteps())
}

func TestAgent_LearnRunsWithFullBatch(t *testing.T) {
	a := testAgent(t, domain.StrategyVanilla)
	fillMemory(a, 10)

	_, learned, err := a.Learn()
	require.NoError(t, err)
	assert.True(t, learned)
	assert.Equal(t, 1, a.LearnSteps())
}

func TestAgent_TargetChangesOnlyAtSyncBoundaries(t *testing.T) {
	a := testAgent(t, domain.StrategyFixedTarget) // SyncEvery = 3
	fillMemory(a, 16)

	snapshot := a.target.Parameters()

	for step := 1; step <= 7; step++ {
		_, learned, err := a.Learn()
		require.NoError(t, err)
		require.True(t, learned)

		if step%3 == 0 {
			assert.Equal(t, a.behavior.Parameters(), a.target.Parameters(),
				"step %d: target must equal behavior right after sync", step)
			snapshot = a.target.Parameters()
		} else {
			assert.Equal(t, snapshot, a.target.Parameters(),
				"step %d: target must be bit-identical between syncs", step)
		}
	}
}

func TestAgent_VanillaHasNoTargetNetwork(t *testing.T) {
	a := testAgent(t, domain.StrategyVanilla)
	assert.Nil(t, a.target)

	b := testAgent(t, domain.StrategyDouble)
	assert.NotNil(t, b.target)
}

func TestAgent_DecayEpsilonRespectsFloor(t *testing.T) {
	cfg := testAgentConfig(domain.StrategyVanilla)
	cfg.Epsilon = 1.0
	cfg.EpsilonDecay = 0.5
	cfg.EpsilonMin = 0.2

	a, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	a.DecayEpsilon()
	assert.Equal(t, 0.5, a.Epsilon())
	a.DecayEpsilon()
	assert.Equal(t, 0.25, a.Epsilon())
	a.DecayEpsilon()
	assert.Equal(t, 0.2, a.Epsilon(), "decay must stop at the floor")
	a.DecayEpsilon()
	assert.Equal(t, 0.2, a.Epsilon())
}

func TestAgent_CheckpointRoundTrip(t *testing.T) {
	a := testAgent(t, domain.StrategyDouble)
	fillMemory(a, 16)
	for i := 0; i < 5; i++ {
		_, _, err := a.Learn()
		require.NoError(t, err)
	}

	blob, err := a.ExportParameters()
	require.NoError(t, err)

	b := testAgent(t, domain.StrategyDouble)
	require.NoError(t, b.ImportParameters(blob))

	state := []float64{0.15, 0.35, 0.55, 0.75}
	qa, err := a.behavior.Predict(state)
	require.NoError(t, err)
	qb, err := b.behavior.Predict(state)
	require.NoError(t, err)
	assert.Equal(t, qa, qb)

	// The import also re-syncs the target network.
	qt, err := b.target.Predict(state)
	require.NoError(t, err)
	assert.Equal(t, qa, qt)
}

func TestAgent_ImportRejectsIncompatibleBlob(t *testing.T) {
	a := testAgent(t, domain.StrategyVanilla)

	blob, err := a.ExportParameters()
	require.NoError(t, err)

	cfg := testAgentConfig(domain.StrategyVanilla)
	cfg.Window = 6 // different input width
	b, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	err = b.ImportParameters(blob)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incompatible")

	assert.Error(t, a.ImportParameters([]byte("not a checkpoint")))
}

func TestAgent_LearnSurfacesShapeMismatch(t *testing.T) {
	a := testAgent(t, domain.StrategyVanilla)

	// A transition whose state is the wrong width poisons the batch.
	for i := 0; i < 8; i++ {
		a.Remember(Transition{
			State:     []float64{0.1, 0.2},
			Action:    domain.ActionHold,
			NextState: []float64{0.1, 0.2},
		})
	}

	_, _, err := a.Learn()
	require.Error(t, err)

	var shapeErr *ShapeMismatchError
	assert.ErrorAs(t, err, &shapeErr)
}
