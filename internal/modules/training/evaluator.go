package training

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/deep-trader/internal/domain"
	"github.com/aristath/deep-trader/internal/modules/dqn"
)

// EvaluationResult is the outcome of one deterministic evaluation pass.
type EvaluationResult struct {
	Symbol      string             `json:"symbol"`
	TotalProfit float64            `json:"total_profit"`
	Trades      int                `json:"trades"`
	Trace       []domain.TraceStep `json:"trace"`
}

// Evaluator replays a trained agent over held-out data with exploration
// forced off. No learning updates run and no transitions are stored, so the
// pass is repeatable: the same parameters and series always produce the same
// trace.
type Evaluator struct {
	agent  *dqn.Agent
	window int
	log    zerolog.Logger
}

// NewEvaluator creates an evaluator around a trained agent.
func NewEvaluator(agent *dqn.Agent, window int, log zerolog.Logger) *Evaluator {
	return &Evaluator{
		agent:  agent,
		window: window,
		log:    log.With().Str("component", "evaluator").Logger(),
	}
}

// Evaluate runs a single greedy pass over the series and returns the
// cumulative realized profit with a per-step action trace.
func (e *Evaluator) Evaluate(symbol string, series []domain.PricePoint) (EvaluationResult, error) {
	if len(series) < 2 {
		return EvaluationResult{}, fmt.Errorf("price series too short: %d points", len(series))
	}

	prices := make([]float64, len(series))
	for i, p := range series {
		prices[i] = p.AdjClose
	}

	inventory := NewInventory()
	result := EvaluationResult{
		Symbol: symbol,
		Trace:  make([]domain.TraceStep, 0, len(series)),
	}

	for step := range series {
		state := dqn.Encode(prices, step, e.window)

		action, err := e.agent.GreedyAction(state)
		if err != nil {
			return EvaluationResult{}, err
		}

		var reward float64
		switch action {
		case domain.ActionBuy:
			inventory.Buy(prices[step])
			result.Trades++
		case domain.ActionSell:
			if bought, ok := inventory.Sell(); ok {
				reward = prices[step] - bought
				result.Trades++
			}
		}
		result.TotalProfit += reward

		result.Trace = append(result.Trace, domain.TraceStep{
			Date:          series[step].Date,
			Action:        action,
			ActionName:    action.String(),
			Price:         prices[step],
			Reward:        reward,
			RunningProfit: result.TotalProfit,
		})
	}

	e.log.Info().
		Str("symbol", symbol).
		Float64("total_profit", result.TotalProfit).
		Int("trades", result.Trades).
		Msg("Evaluation completed")

	return result, nil
}
