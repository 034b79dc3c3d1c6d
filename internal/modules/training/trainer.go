package training

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/deep-trader/internal/domain"
	"github.com/aristath/deep-trader/internal/events"
	"github.com/aristath/deep-trader/internal/modules/dqn"
	"github.com/aristath/deep-trader/pkg/formulas"
)

// EpisodeHook is invoked after every completed episode with the episode
// result and a fresh checkpoint blob of the behavior network. Returning an
// error aborts the run.
type EpisodeHook func(result domain.EpisodeResult, checkpoint []byte) error

// Trainer drives repeated episodes over a price series.
//
// One episode is one full pass: encode state, select action, execute the
// trade against the FIFO inventory, store the transition, learn. Execution is
// strictly sequential; each step's state depends on the trading history so
// far, and the learn cycle must see up-to-date memory contents.
type Trainer struct {
	agent  *dqn.Agent
	window int
	events *events.Manager
	log    zerolog.Logger
}

// NewTrainer creates a trainer around an agent.
func NewTrainer(agent *dqn.Agent, window int, ev *events.Manager, log zerolog.Logger) *Trainer {
	return &Trainer{
		agent:  agent,
		window: window,
		events: ev,
		log:    log.With().Str("component", "trainer").Logger(),
	}
}

// Train runs the configured number of episodes over the price series,
// invoking hook after each episode. The context is only checked between
// episodes; an interrupted run leaves the last checkpoint as the recovery
// point.
func (t *Trainer) Train(ctx context.Context, prices []float64, episodes int, hook EpisodeHook) error {
	if len(prices) < 2 {
		return fmt.Errorf("price series too short: %d points", len(prices))
	}

	for episode := 1; episode <= episodes; episode++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("training interrupted at episode %d: %w", episode, err)
		}

		result, err := t.RunEpisode(prices, episode)
		if err != nil {
			return fmt.Errorf("episode %d failed: %w", episode, err)
		}

		t.log.Info().
			Int("episode", episode).
			Float64("total_reward", result.TotalReward).
			Float64("mean_loss", result.MeanLoss).
			Float64("epsilon", result.Epsilon).
			Msg("Episode completed")

		if t.events != nil {
			t.events.Emit(events.EpisodeCompleted, "training", map[string]interface{}{
				"episode":      episode,
				"total_reward": result.TotalReward,
				"mean_loss":    result.MeanLoss,
				"epsilon":      result.Epsilon,
			})
		}

		if hook != nil {
			blob, err := t.agent.ExportParameters()
			if err != nil {
				return fmt.Errorf("failed to export checkpoint after episode %d: %w", episode, err)
			}
			if err := hook(result, blob); err != nil {
				return fmt.Errorf("episode hook failed at episode %d: %w", episode, err)
			}
		}
	}

	return nil
}

// RunEpisode runs one full pass over the price series and returns its
// summary. Exploration decay and inventory reset happen at episode end, so
// the result carries the decayed epsilon the next episode starts with; the
// agent's target-sync counter runs across episode boundaries.
func (t *Trainer) RunEpisode(prices []float64, episode int) (domain.EpisodeResult, error) {
	inventory := NewInventory()
	var totalReward float64
	var trades int
	var losses []float64

	last := len(prices) - 1
	for step := 0; step <= last; step++ {
		state := dqn.Encode(prices, step, t.window)

		action, err := t.agent.SelectAction(state)
		if err != nil {
			return domain.EpisodeResult{}, err
		}

		reward := t.execute(action, prices[step], inventory, &trades)
		totalReward += reward

		done := step == last
		nextState := state
		if !done {
			nextState = dqn.Encode(prices, step+1, t.window)
		}

		t.agent.Remember(dqn.Transition{
			State:     state,
			Action:    action,
			Reward:    reward,
			NextState: nextState,
			Done:      done,
		})

		loss, learned, err := t.agent.Learn()
		if err != nil {
			return domain.EpisodeResult{}, err
		}
		if learned {
			losses = append(losses, loss)
		}
	}

	// Mark open positions to the final price for the portfolio value.
	unrealized := float64(inventory.Open())*prices[last] - inventory.Value()

	inventory.Reset()
	t.agent.DecayEpsilon()

	result := domain.EpisodeResult{
		Episode:        episode,
		TotalReward:    totalReward,
		PortfolioValue: totalReward + unrealized,
		Trades:         trades,
		LearnSteps:     len(losses),
		Epsilon:        t.agent.Epsilon(),
	}
	if len(losses) > 0 {
		result.MeanLoss = formulas.Mean(losses)
		result.MaxLoss = formulas.Max(losses)
	}

	return result, nil
}

// execute applies an action to the inventory and returns the realized reward.
// A SELL with no open position is a silent no-op with zero reward.
func (t *Trainer) execute(action domain.Action, price float64, inventory *Inventory, trades *int) float64 {
	switch action {
	case domain.ActionBuy:
		inventory.Buy(price)
		*trades++
		return 0
	case domain.ActionSell:
		bought, ok := inventory.Sell()
		if !ok {
			return 0
		}
		*trades++
		return price - bought
	default:
		return 0
	}
}
