package domain

import "time"

// Action is a trading decision for a single unit of the instrument.
type Action int

const (
	ActionHold Action = iota
	ActionBuy
	ActionSell
)

// NumActions is the size of the discrete action space.
const NumActions = 3

// String returns the canonical name of the action.
func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Strategy selects the Q-learning target formula.
type Strategy int

const (
	// StrategyVanilla evaluates the next state with the behavior network.
	StrategyVanilla Strategy = iota
	// StrategyFixedTarget evaluates the next state with a frozen target network.
	StrategyFixedTarget
	// StrategyDouble selects the next action with the behavior network and
	// evaluates it with the target network.
	StrategyDouble
)

// String returns the canonical name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyFixedTarget:
		return "fixed_target"
	case StrategyDouble:
		return "double"
	default:
		return "vanilla"
	}
}

// ParseStrategy maps a configuration string to a Strategy.
// Unknown values fall back to vanilla.
func ParseStrategy(s string) Strategy {
	switch s {
	case "fixed_target", "fixed-target", "target":
		return StrategyFixedTarget
	case "double", "ddqn":
		return StrategyDouble
	default:
		return StrategyVanilla
	}
}

// PricePoint is one day of adjusted-close price data.
type PricePoint struct {
	Date     time.Time `json:"date"`
	AdjClose float64   `json:"adj_close"`
}

// TraceStep is one step of a deterministic evaluation pass.
type TraceStep struct {
	Date          time.Time `json:"date"`
	Action        Action    `json:"action"`
	ActionName    string    `json:"action_name"`
	Price         float64   `json:"price"`
	Reward        float64   `json:"reward"`
	RunningProfit float64   `json:"running_profit"`
}

// EpisodeResult summarizes one training episode.
type EpisodeResult struct {
	Episode        int     `json:"episode"`
	TotalReward    float64 `json:"total_reward"`
	PortfolioValue float64 `json:"portfolio_value"`
	Trades         int     `json:"trades"`
	MeanLoss       float64 `json:"mean_loss"`
	MaxLoss        float64 `json:"max_loss"`
	LearnSteps     int     `json:"learn_steps"`
	Epsilon        float64 `json:"epsilon"`
}

// TrainingRun is a persisted training run record.
type TrainingRun struct {
	ID         int64      `json:"id"`
	Symbol     string     `json:"symbol"`
	Strategy   string     `json:"strategy"`
	Window     int        `json:"window"`
	Episodes   int        `json:"episodes"`
	Status     string     `json:"status"` // running, completed, failed
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Training run status values.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)
