package dqn

import (
	"fmt"

	"github.com/aristath/deep-trader/internal/domain"
)

// argmax returns the index of the largest value. Ties resolve to the lowest
// index, which gives the fixed priority HOLD > BUY > SELL and keeps greedy
// action selection deterministic.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

// maxOf returns the largest value in the slice.
func maxOf(values []float64) float64 {
	return values[argmax(values)]
}

// computeTarget produces the Q-learning target for one transition.
//
// Terminal transitions bootstrap nothing: the target is the raw reward.
// Otherwise the three strategies differ only in how the next state is valued:
//
//   - Vanilla:     r + gamma * max_a Q_behavior(s', a)
//   - FixedTarget: r + gamma * max_a Q_target(s', a)
//   - Double:      r + gamma * Q_target(s', argmax_a Q_behavior(s', a))
func computeTarget(strategy domain.Strategy, tr Transition, behavior, target *Network, gamma float64) (float64, error) {
	if tr.Done {
		return tr.Reward, nil
	}

	switch strategy {
	case domain.StrategyVanilla:
		q, err := behavior.Predict(tr.NextState)
		if err != nil {
			return 0, err
		}
		return tr.Reward + gamma*maxOf(q), nil

	case domain.StrategyFixedTarget:
		q, err := target.Predict(tr.NextState)
		if err != nil {
			return 0, err
		}
		return tr.Reward + gamma*maxOf(q), nil

	case domain.StrategyDouble:
		qBehavior, err := behavior.Predict(tr.NextState)
		if err != nil {
			return 0, err
		}
		qTarget, err := target.Predict(tr.NextState)
		if err != nil {
			return 0, err
		}
		return tr.Reward + gamma*qTarget[argmax(qBehavior)], nil

	default:
		return 0, fmt.Errorf("unknown strategy %d", strategy)
	}
}
