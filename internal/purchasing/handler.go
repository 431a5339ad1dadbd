package purchasing

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/atlas-ims/atlas-ims/internal/platform/httpx"
)

// Handler exposes the purchase order and goods receipt endpoints as JSON.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers purchasing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Post("/", h.createOrder)
		r.Get("/{id}", h.getOrder)
		r.Put("/{id}", h.updateOrder)
		r.Post("/{id}/approve", h.approveOrder)
		r.Post("/{id}/cancel", h.cancelOrder)
	})
	r.Route("/receipts", func(r chi.Router) {
		r.Get("/", h.listReceipts)
		r.Post("/", h.postReceipt)
		r.Get("/{id}", h.getReceipt)
	})
}

type orderLineRequest struct {
	ProductID  int64            `json:"product_id" validate:"required,gt=0"`
	OrderedQty decimal.Decimal  `json:"ordered_qty" validate:"required"`
	UnitPrice  *decimal.Decimal `json:"unit_price"`
}

type createOrderRequest struct {
	SupplierID int64              `json:"supplier_id" validate:"required,gt=0"`
	OrderDate  string             `json:"order_date"`
	Lines      []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CreateOrderInput{SupplierID: req.SupplierID}
	if req.OrderDate != "" {
		d, err := time.Parse("2006-01-02", req.OrderDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "order_date must be YYYY-MM-DD")
			return
		}
		input.OrderDate = d
	}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, CreateOrderLine{
			ProductID:  l.ProductID,
			OrderedQty: l.OrderedQty,
			UnitPrice:  l.UnitPrice,
		})
	}

	order, err := h.service.CreateOrder(r.Context(), input)
	if err != nil {
		h.logger.Error("create order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

type updateOrderRequest struct {
	SupplierID int64              `json:"supplier_id" validate:"required,gt=0"`
	OrderDate  string             `json:"order_date"`
	Version    int64              `json:"version"`
	Lines      []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	var req updateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := UpdateOrderInput{SupplierID: req.SupplierID, Version: req.Version}
	if req.OrderDate != "" {
		d, err := time.Parse("2006-01-02", req.OrderDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "order_date must be YYYY-MM-DD")
			return
		}
		input.OrderDate = d
	}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, CreateOrderLine{
			ProductID:  l.ProductID,
			OrderedQty: l.OrderedQty,
			UnitPrice:  l.UnitPrice,
		})
	}

	order, err := h.service.UpdateOrder(r.Context(), id, input)
	if err != nil {
		h.logger.Error("update order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) approveOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.ApproveOrder)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.CancelOrder)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) (PurchaseOrder, error)) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	order, err := fn(r.Context(), id)
	if err != nil {
		h.logger.Error("order transition", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	filters := listFilters(r)
	filters.Status = OrderStatus(r.URL.Query().Get("status"))
	filters.SupplierID, _ = strconv.ParseInt(r.URL.Query().Get("supplier_id"), 10, 64)

	items, err := h.service.ListOrders(r.Context(), filters)
	if err != nil {
		h.logger.Error("list orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": items})
}

type receiptLineRequest struct {
	OrderLineID int64            `json:"order_line_id" validate:"required,gt=0"`
	ReceivedQty decimal.Decimal  `json:"received_qty" validate:"required"`
	UnitCost    *decimal.Decimal `json:"unit_cost"`
}

type postReceiptRequest struct {
	PurchaseOrderID int64                `json:"purchase_order_id" validate:"required,gt=0"`
	WarehouseID     int64                `json:"warehouse_id" validate:"required,gt=0"`
	ReceiptDate     string               `json:"receipt_date"`
	Lines           []receiptLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) postReceipt(w http.ResponseWriter, r *http.Request) {
	var req postReceiptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := PostReceiptInput{
		PurchaseOrderID: req.PurchaseOrderID,
		WarehouseID:     req.WarehouseID,
	}
	if req.ReceiptDate != "" {
		d, err := time.Parse("2006-01-02", req.ReceiptDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "receipt_date must be YYYY-MM-DD")
			return
		}
		input.ReceiptDate = d
	}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, PostReceiptLine{
			OrderLineID: l.OrderLineID,
			ReceivedQty: l.ReceivedQty,
			UnitCost:    l.UnitCost,
		})
	}

	receipt, err := h.service.PostGoodsReceipt(r.Context(), input)
	if err != nil {
		h.logger.Error("post receipt", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid receipt id")
		return
	}
	receipt, err := h.service.GetReceipt(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, receipt)
}

func (h *Handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListReceipts(r.Context(), listFilters(r))
	if err != nil {
		h.logger.Error("list receipts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"receipts": items})
}

func listFilters(r *http.Request) ListFilters {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return ListFilters{
		Search: r.URL.Query().Get("q"),
		Limit:  limit,
		Offset: offset,
	}
}
