package sim

import (
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model"
	"main/internal/model/enum"
)

// Scenario is a fixed execution-timing hypothesis: waiting Delay before
// executing is modelled as the base impact scaled by ImpactFactor.
type Scenario struct {
	Name         string
	Delay        time.Duration
	ImpactFactor decimal.Decimal
}

// DefaultScenarios are the scenarios compared by the timing query.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "instant", Delay: 0, ImpactFactor: decimal.NewFromInt(1)},
		{Name: "fast", Delay: 500 * time.Millisecond, ImpactFactor: decimal.RequireFromString("1.25")},
		{Name: "slow", Delay: 2 * time.Second, ImpactFactor: decimal.RequireFromString("1.5")},
		{Name: "manual", Delay: 5 * time.Second, ImpactFactor: decimal.NewFromInt(2)},
	}
}

// CompareTimings runs the base simulation once and derives each scenario's
// adjusted outcome by scaling slippage and price impact. Pure query: it
// never touches ledger state.
func CompareTimings(params model.OrderParams, snap model.BookSnapshot, scenarios []Scenario) []model.ScenarioResult {
	base := Simulate(params, snap)
	results := make([]model.ScenarioResult, 0, len(scenarios))
	for _, sc := range scenarios {
		adjusted := model.ScenarioResult{
			Name:          sc.Name,
			Delay:         sc.Delay,
			ImpactFactor:  sc.ImpactFactor,
			FilledPercent: base.FilledPercent,
		}
		if base.Filled() {
			impact := base.PriceImpact.Mul(sc.ImpactFactor)
			adjusted.PriceImpact = impact
			adjusted.SlippagePercent = base.SlippagePercent.Mul(sc.ImpactFactor)
			// Impact worsens the fill in the direction of the order.
			switch params.Side {
			case enum.SideSell:
				adjusted.AvgFillPrice = base.AvgFillPrice.Sub(impact.Sub(base.PriceImpact))
			default:
				adjusted.AvgFillPrice = base.AvgFillPrice.Add(impact.Sub(base.PriceImpact))
			}
		}
		results = append(results, adjusted)
	}
	return results
}
