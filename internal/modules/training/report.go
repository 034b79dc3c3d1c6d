package training

import (
	"github.com/aristath/deep-trader/internal/domain"
	"github.com/aristath/deep-trader/pkg/formulas"
)

// Report augments an evaluation result with risk and market-context metrics
// for downstream visualization.
type Report struct {
	EvaluationResult

	SharpeRatio *float64 `json:"sharpe_ratio,omitempty"`
	MaxDrawdown *float64 `json:"max_drawdown,omitempty"`
	RSI         *float64 `json:"rsi,omitempty"`
	Volatility  float64  `json:"volatility"`   // annualized, from daily returns
	BuyAndHold  float64  `json:"buy_and_hold"` // passive benchmark over the same series
}

// BuildReport computes the derived metrics for an evaluation run.
// The Sharpe ratio, drawdown and annualized volatility are computed over the
// price series the agent traded; RSI(14) gives the market context at the end
// of the series.
func BuildReport(result EvaluationResult, series []domain.PricePoint) Report {
	prices := make([]float64, len(series))
	for i, p := range series {
		prices[i] = p.AdjClose
	}

	report := Report{
		EvaluationResult: result,
		SharpeRatio:      formulas.CalculateSharpeFromPrices(prices, 0),
		MaxDrawdown:      formulas.CalculateMaxDrawdown(prices),
		RSI:              formulas.CalculateRSI(prices, 14),
		Volatility:       formulas.AnnualizedVolatility(formulas.CalculateReturns(prices)),
	}
	if len(prices) > 0 {
		report.BuyAndHold = prices[len(prices)-1] - prices[0]
	}
	return report
}
