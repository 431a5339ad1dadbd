package costing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/atlas-ims/atlas-ims/internal/shared"
)

// Consumption describes the quantity taken from one layer during a FIFO walk.
type Consumption struct {
	LayerID  int64
	Qty      decimal.Decimal
	UnitCost decimal.Decimal
}

// PlanConsumption walks open layers oldest-first (ascending id) and takes
// min(remaining, still needed) from each until qtyNeeded is satisfied.
// It returns the ordered consumptions and the total cost. The plan is pure:
// nothing is committed when the open quantity falls short.
func PlanConsumption(layers []CostLayer, qtyNeeded decimal.Decimal) ([]Consumption, decimal.Decimal, error) {
	if qtyNeeded.Sign() <= 0 {
		return nil, decimal.Zero, fmt.Errorf("costing: consumption quantity must be positive: %w", shared.ErrValidation)
	}

	open := make([]CostLayer, 0, len(layers))
	available := decimal.Zero
	for _, l := range layers {
		if l.Closed() {
			continue
		}
		open = append(open, l)
		available = available.Add(l.RemainingQty)
	}
	if available.LessThan(qtyNeeded) {
		return nil, decimal.Zero, fmt.Errorf("costing: need %s but only %s available: %w",
			qtyNeeded, available, shared.ErrInsufficientStock)
	}

	sort.Slice(open, func(i, j int) bool { return open[i].ID < open[j].ID })

	var plan []Consumption
	totalCost := decimal.Zero
	remaining := qtyNeeded
	for _, l := range open {
		if remaining.Sign() == 0 {
			break
		}
		take := decimal.Min(l.RemainingQty, remaining)
		plan = append(plan, Consumption{LayerID: l.ID, Qty: take, UnitCost: l.UnitCost})
		totalCost = totalCost.Add(take.Mul(l.UnitCost))
		remaining = remaining.Sub(take)
	}
	return plan, totalCost, nil
}
