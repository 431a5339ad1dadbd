package costing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/atlas-ims/atlas-ims/internal/shared"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func layer(id int64, remaining, cost string) CostLayer {
	return CostLayer{
		ID:           id,
		ProductID:    1,
		WarehouseID:  7,
		RemainingQty: dec(remaining),
		UnitCost:     dec(cost),
		CreatedAt:    time.Now(),
	}
}

func TestPlanConsumptionSpansLayersOldestFirst(t *testing.T) {
	layers := []CostLayer{
		layer(1, "6", "5.00"),
		layer(2, "10", "5.50"),
	}

	plan, totalCost, err := PlanConsumption(layers, dec("8"))
	require.NoError(t, err)
	require.Len(t, plan, 2)

	require.Equal(t, int64(1), plan[0].LayerID)
	require.True(t, plan[0].Qty.Equal(dec("6")))
	require.Equal(t, int64(2), plan[1].LayerID)
	require.True(t, plan[1].Qty.Equal(dec("2")))

	// 6*5.00 + 2*5.50 = 41.00
	require.True(t, totalCost.Equal(dec("41.00")), "total %s", totalCost)
}

func TestPlanConsumptionOrdersByIDNotInputOrder(t *testing.T) {
	layers := []CostLayer{
		layer(9, "5", "9.00"),
		layer(2, "5", "2.00"),
		layer(5, "5", "5.00"),
	}

	plan, totalCost, err := PlanConsumption(layers, dec("12"))
	require.NoError(t, err)
	require.Len(t, plan, 3)
	require.Equal(t, int64(2), plan[0].LayerID)
	require.Equal(t, int64(5), plan[1].LayerID)
	require.Equal(t, int64(9), plan[2].LayerID)
	require.True(t, plan[2].Qty.Equal(dec("2")))
	// 5*2.00 + 5*5.00 + 2*9.00 = 53.00
	require.True(t, totalCost.Equal(dec("53.00")))
}

func TestPlanConsumptionSkipsClosedLayers(t *testing.T) {
	layers := []CostLayer{
		layer(1, "0", "5.00"),
		layer(2, "4", "6.00"),
	}

	plan, totalCost, err := PlanConsumption(layers, dec("4"))
	require.NoError(t, err)
	require.Len(t, plan, 1)
	require.Equal(t, int64(2), plan[0].LayerID)
	require.True(t, totalCost.Equal(dec("24.00")))
}

func TestPlanConsumptionInsufficientStock(t *testing.T) {
	layers := []CostLayer{layer(1, "3", "5.00")}

	_, _, err := PlanConsumption(layers, dec("4"))
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
}

func TestPlanConsumptionExactDrain(t *testing.T) {
	layers := []CostLayer{
		layer(1, "3", "5.00"),
		layer(2, "2", "6.00"),
	}

	plan, totalCost, err := PlanConsumption(layers, dec("5"))
	require.NoError(t, err)
	require.Len(t, plan, 2)
	require.True(t, plan[1].Qty.Equal(dec("2")))
	require.True(t, totalCost.Equal(dec("27.00")))
}

func TestPlanConsumptionFractionalQuantities(t *testing.T) {
	layers := []CostLayer{
		layer(1, "0.5", "10.00"),
		layer(2, "1.25", "12.00"),
	}

	plan, totalCost, err := PlanConsumption(layers, dec("1.6"))
	require.NoError(t, err)
	require.True(t, plan[0].Qty.Equal(dec("0.5")))
	require.True(t, plan[1].Qty.Equal(dec("1.1")))
	// 0.5*10 + 1.1*12 = 18.20
	require.True(t, totalCost.Equal(dec("18.2")), "total %s", totalCost)
}

func TestPlanConsumptionRejectsNonPositiveQty(t *testing.T) {
	_, _, err := PlanConsumption(nil, decimal.Zero)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestNewEntryExactlyOneSide(t *testing.T) {
	now := time.Now()

	_, err := NewEntry(TransactionPurchase, 1, 7, dec("5"), dec("5"), dec("25"), 1, "GoodsReceipt", now)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewEntry(TransactionSale, 1, 7, decimal.Zero, decimal.Zero, decimal.Zero, 0, "", now)
	require.ErrorIs(t, err, shared.ErrValidation)

	entry, err := NewEntry(TransactionSale, 1, 7, decimal.Zero, dec("5"), dec("25"), 0, "", now)
	require.NoError(t, err)
	require.True(t, entry.QuantityIn.IsZero())
	require.True(t, entry.QuantityOut.Equal(dec("5")))
}

func TestNewEntryRejectsUnknownType(t *testing.T) {
	_, err := NewEntry("RECOUNT", 1, 7, dec("1"), decimal.Zero, decimal.Zero, 0, "", time.Now())
	require.ErrorIs(t, err, shared.ErrValidation)
}
