package purchasing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atlas-ims/atlas-ims/internal/shared"
)

func draftOrder() PurchaseOrder {
	return PurchaseOrder{
		ID:     1,
		Number: "PO-20260310-001",
		Status: OrderStatusDraft,
		Lines: []OrderLine{
			{ID: 11, OrderID: 1, ProductID: 1, OrderedQty: dec("10"), UnitPrice: dec("5.00")},
			{ID: 12, OrderID: 1, ProductID: 2, OrderedQty: dec("4"), UnitPrice: dec("5.50")},
		},
	}
}

func TestApproveStampsDateAndLeavesInputUntouched(t *testing.T) {
	o := draftOrder()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	next, err := approveOrder(o, now)
	require.NoError(t, err)
	require.Equal(t, OrderStatusApproved, next.Status)
	require.NotNil(t, next.ApprovedDate)
	require.Equal(t, now, *next.ApprovedDate)

	// The snapshot passed in must not change.
	require.Equal(t, OrderStatusDraft, o.Status)
	require.Nil(t, o.ApprovedDate)
}

func TestApproveRejectsNonDraftAndEmptyOrders(t *testing.T) {
	now := time.Now()

	o := draftOrder()
	o.Status = OrderStatusApproved
	_, err := approveOrder(o, now)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	o = draftOrder()
	o.Lines = nil
	_, err = approveOrder(o, now)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCancelAllowedFromDraftAndApprovedOnly(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusDraft, OrderStatusApproved} {
		o := draftOrder()
		o.Status = status
		next, err := cancelOrder(o)
		require.NoError(t, err)
		require.Equal(t, OrderStatusCancelled, next.Status)
	}
	for _, status := range []OrderStatus{OrderStatusPartiallyReceived, OrderStatusCompleted, OrderStatusCancelled} {
		o := draftOrder()
		o.Status = status
		_, err := cancelOrder(o)
		require.ErrorIs(t, err, shared.ErrInvalidState, "status %s", status)
	}
}

func TestReconcileRemovesUpdatesAndAppends(t *testing.T) {
	o := draftOrder()
	orderDate := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)

	next, err := reconcileLines(o, 2, orderDate, []LinePatch{
		{ProductID: 2, OrderedQty: dec("8"), UnitPrice: dec("6.00")},
		{ProductID: 3, OrderedQty: dec("2"), UnitPrice: dec("1.25")},
	})
	require.NoError(t, err)

	require.Equal(t, int64(2), next.SupplierID)
	require.Equal(t, orderDate, next.OrderDate)
	require.Len(t, next.Lines, 2)

	// Product 1 removed, product 2 updated in place keeping its id,
	// product 3 appended without one.
	require.Equal(t, int64(2), next.Lines[0].ProductID)
	require.Equal(t, int64(12), next.Lines[0].ID)
	require.True(t, next.Lines[0].OrderedQty.Equal(dec("8")))
	require.Equal(t, int64(3), next.Lines[1].ProductID)
	require.Zero(t, next.Lines[1].ID)

	// 8*6.00 + 2*1.25 = 50.50
	require.True(t, next.TotalAmount.Equal(dec("50.50")), "total %s", next.TotalAmount)

	require.Len(t, o.Lines, 2)
	require.Equal(t, int64(1), o.Lines[0].ProductID)
}

func TestReconcileRejectsNonPositiveQty(t *testing.T) {
	o := draftOrder()
	_, err := reconcileLines(o, 1, o.OrderDate, []LinePatch{
		{ProductID: 1, OrderedQty: dec("0"), UnitPrice: dec("5.00")},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestReconcileRejectsDuplicateProducts(t *testing.T) {
	o := draftOrder()

	// Two patches for a product the order already carries.
	_, err := reconcileLines(o, 1, o.OrderDate, []LinePatch{
		{ProductID: 1, OrderedQty: dec("2"), UnitPrice: dec("5.00")},
		{ProductID: 1, OrderedQty: dec("6"), UnitPrice: dec("5.00")},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	// Two patches for a product new to the order must not both append.
	_, err = reconcileLines(o, 1, o.OrderDate, []LinePatch{
		{ProductID: 3, OrderedQty: dec("2"), UnitPrice: dec("1.00")},
		{ProductID: 3, OrderedQty: dec("5"), UnitPrice: dec("1.00")},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestApplyReceiptStatusTransitions(t *testing.T) {
	o := draftOrder()
	o.Status = OrderStatusApproved

	partial, err := applyReceipt(o, []ReceiptLineInput{
		{OrderLineID: 11, ReceivedQty: dec("6"), UnitCost: dec("5.00")},
	})
	require.NoError(t, err)
	require.Equal(t, OrderStatusPartiallyReceived, partial.Status)
	require.True(t, partial.Lines[0].ReceivedQty.Equal(dec("6")))

	full, err := applyReceipt(partial, []ReceiptLineInput{
		{OrderLineID: 11, ReceivedQty: dec("4"), UnitCost: dec("5.00")},
		{OrderLineID: 12, ReceivedQty: dec("4"), UnitCost: dec("5.50")},
	})
	require.NoError(t, err)
	require.Equal(t, OrderStatusCompleted, full.Status)
}

func TestApplyReceiptOverReceiptGuard(t *testing.T) {
	o := draftOrder()
	o.Status = OrderStatusApproved
	o.Lines[0].ReceivedQty = dec("8")

	_, err := applyReceipt(o, []ReceiptLineInput{
		{OrderLineID: 11, ReceivedQty: dec("3"), UnitCost: dec("5.00")},
	})
	require.ErrorIs(t, err, shared.ErrOverReceipt)

	// Receiving exactly the outstanding quantity is fine.
	next, err := applyReceipt(o, []ReceiptLineInput{
		{OrderLineID: 11, ReceivedQty: dec("2"), UnitCost: dec("5.00")},
	})
	require.NoError(t, err)
	require.True(t, next.Lines[0].ReceivedQty.Equal(dec("10")))
}
