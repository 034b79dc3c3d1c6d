package dqn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/aristath/deep-trader/internal/domain"
)

// Config holds the agent's hyperparameters.
type Config struct {
	Strategy     domain.Strategy
	Window       int     // state vector length = network input width
	Hidden       []int   // hidden layer sizes, defaults to [64, 32]
	Capacity     int     // replay memory capacity
	BatchSize    int     // minibatch size for learning updates
	Gamma        float64 // discount factor
	Epsilon      float64 // initial exploration rate
	EpsilonDecay float64 // multiplicative per-episode decay
	EpsilonMin   float64 // exploration floor
	SyncEvery    int     // target sync interval in learn steps
	LearningRate float64
	Seed         int64
}

// Agent owns the behavior network, the optional target network and the
// replay memory, and carries all mutable training state (exploration rate,
// sync counter). Nothing lives in package globals, so independent agents can
// train side by side.
type Agent struct {
	strategy domain.Strategy
	behavior *Network
	target   *Network // nil for the vanilla strategy
	memory   *ReplayMemory

	gamma        float64
	epsilon      float64
	epsilonDecay float64
	epsilonMin   float64
	batchSize    int
	syncEvery    int
	learnSteps   int

	rng *rand.Rand
	log zerolog.Logger
}

// New creates an agent for the given strategy and hyperparameters.
// For target-based strategies the target network starts as an exact copy of
// the behavior network.
func New(cfg Config, log zerolog.Logger) (*Agent, error) {
	if cfg.Window < 1 {
		return nil, fmt.Errorf("window must be positive, got %d", cfg.Window)
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.Gamma <= 0 || cfg.Gamma > 1 {
		return nil, fmt.Errorf("gamma must be in (0, 1], got %f", cfg.Gamma)
	}
	hidden := cfg.Hidden
	if len(hidden) == 0 {
		hidden = []int{64, 32}
	}
	syncEvery := cfg.SyncEvery
	if syncEvery < 1 {
		syncEvery = 100
	}
	lr := cfg.LearningRate
	if lr <= 0 {
		lr = 0.001
	}

	sizes := append([]int{cfg.Window}, hidden...)
	sizes = append(sizes, domain.NumActions)

	rng := rand.New(rand.NewSource(cfg.Seed))

	behavior, err := NewNetwork(sizes, lr, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to build behavior network: %w", err)
	}

	a := &Agent{
		strategy:     cfg.Strategy,
		behavior:     behavior,
		memory:       NewReplayMemory(cfg.Capacity, rng),
		gamma:        cfg.Gamma,
		epsilon:      cfg.Epsilon,
		epsilonDecay: cfg.EpsilonDecay,
		epsilonMin:   cfg.EpsilonMin,
		batchSize:    cfg.BatchSize,
		syncEvery:    syncEvery,
		rng:          rng,
		log:          log.With().Str("component", "agent").Str("strategy", cfg.Strategy.String()).Logger(),
	}

	if cfg.Strategy != domain.StrategyVanilla {
		target, err := NewNetwork(sizes, lr, rng)
		if err != nil {
			return nil, fmt.Errorf("failed to build target network: %w", err)
		}
		if err := target.SyncFrom(behavior); err != nil {
			return nil, err
		}
		a.target = target
	}

	return a, nil
}

// Strategy returns the agent's target-computation strategy.
func (a *Agent) Strategy() domain.Strategy {
	return a.strategy
}

// Epsilon returns the current exploration rate.
func (a *Agent) Epsilon() float64 {
	return a.epsilon
}

// LearnSteps returns the number of completed learning updates.
func (a *Agent) LearnSteps() int {
	return a.learnSteps
}

// Memory exposes the replay memory.
func (a *Agent) Memory() *ReplayMemory {
	return a.memory
}

// SelectAction chooses an action epsilon-greedily: with probability epsilon
// a uniformly random action, otherwise the greedy one.
func (a *Agent) SelectAction(state []float64) (domain.Action, error) {
	if a.epsilon > 0 && a.rng.Float64() < a.epsilon {
		return domain.Action(a.rng.Intn(domain.NumActions)), nil
	}
	return a.GreedyAction(state)
}

// GreedyAction chooses argmax_a Q_behavior(state, a) with no exploration.
// Ties break toward HOLD, then BUY, then SELL.
func (a *Agent) GreedyAction(state []float64) (domain.Action, error) {
	q, err := a.behavior.Predict(state)
	if err != nil {
		return domain.ActionHold, err
	}
	return domain.Action(argmax(q)), nil
}

// Remember stores a transition in the replay memory.
func (a *Agent) Remember(tr Transition) {
	a.memory.Push(tr)
}

// Learn runs one learning update if the replay memory holds at least a full
// batch, and returns (loss, true) when an update ran. An undersized memory is
// not an error; Learn reports (0, false) and the caller moves on.
func (a *Agent) Learn() (float64, bool, error) {
	batch, err := a.memory.Sample(a.batchSize)
	if errors.Is(err, ErrInsufficientData) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	target := a.target
	if target == nil {
		target = a.behavior
	}

	examples := make([]Example, len(batch))
	for i, tr := range batch {
		q, err := a.behavior.Predict(tr.State)
		if err != nil {
			return 0, false, err
		}

		y, err := computeTarget(a.strategy, tr, a.behavior, target, a.gamma)
		if err != nil {
			return 0, false, err
		}

		// Only the taken action's component moves; the rest stay at the
		// current prediction so no gradient flows through them.
		adjusted := append([]float64(nil), q...)
		adjusted[tr.Action] = y

		examples[i] = Example{State: tr.State, Target: adjusted}
	}

	loss, err := a.behavior.Update(examples)
	if err != nil {
		return 0, false, err
	}

	a.learnSteps++
	if a.target != nil && a.learnSteps%a.syncEvery == 0 {
		if err := a.target.SyncFrom(a.behavior); err != nil {
			return 0, false, fmt.Errorf("target sync failed: %w", err)
		}
		a.log.Debug().Int("learn_steps", a.learnSteps).Msg("Target network synchronized")
	}

	return loss, true, nil
}

// DecayEpsilon applies the per-episode multiplicative decay toward the floor.
func (a *Agent) DecayEpsilon() {
	a.epsilon = math.Max(a.epsilonMin, a.epsilon*a.epsilonDecay)
}

// SetEpsilon overrides the exploration rate. Evaluation forces it to zero.
func (a *Agent) SetEpsilon(epsilon float64) {
	a.epsilon = epsilon
}
