package costing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/atlas-ims/atlas-ims/internal/platform/httpx"
)

// Handler exposes the inventory read endpoints and the issue/transfer
// operations as JSON.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/layers", h.listLayers)
	r.Get("/ledger", h.listLedger)
	r.Get("/onhand", h.onHand)
	r.Post("/issues", h.createIssue)
	r.Post("/transfers", h.createTransfer)
}

func (h *Handler) listLayers(w http.ResponseWriter, r *http.Request) {
	productID, _ := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	warehouseID, _ := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	includeClosed := r.URL.Query().Get("include_closed") == "true"

	layers, err := h.service.ListLayers(r.Context(), productID, warehouseID, includeClosed)
	if err != nil {
		h.logger.Error("list layers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"layers": layers})
}

func (h *Handler) listLedger(w http.ResponseWriter, r *http.Request) {
	productID, _ := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	warehouseID, _ := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	filter := LedgerFilter{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Type:        TransactionType(r.URL.Query().Get("type")),
		Limit:       limit,
	}
	if from := r.URL.Query().Get("from"); from != "" {
		filter.From, _ = time.Parse("2006-01-02", from)
	}
	if to := r.URL.Query().Get("to"); to != "" {
		filter.To, _ = time.Parse("2006-01-02", to)
	}

	entries, err := h.service.ListLedger(r.Context(), filter)
	if err != nil {
		h.logger.Error("list ledger", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) onHand(w http.ResponseWriter, r *http.Request) {
	productID, _ := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	warehouseID, _ := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)

	onHand, err := h.service.OnHand(r.Context(), productID, warehouseID)
	if err != nil {
		h.logger.Error("on hand", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, onHand)
}

type issueRequest struct {
	ProductID     int64           `json:"product_id" validate:"required,gt=0"`
	WarehouseID   int64           `json:"warehouse_id" validate:"required,gt=0"`
	Qty           decimal.Decimal `json:"qty" validate:"required"`
	Type          string          `json:"type"`
	ReferenceID   int64           `json:"reference_id"`
	ReferenceType string          `json:"reference_type"`
}

func (h *Handler) createIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.Issue(r.Context(), IssueInput{
		ProductID:     req.ProductID,
		WarehouseID:   req.WarehouseID,
		Qty:           req.Qty,
		Type:          TransactionType(req.Type),
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
	})
	if err != nil {
		h.logger.Error("issue stock", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

type transferRequest struct {
	ProductID      int64           `json:"product_id" validate:"required,gt=0"`
	SrcWarehouseID int64           `json:"src_warehouse_id" validate:"required,gt=0"`
	DstWarehouseID int64           `json:"dst_warehouse_id" validate:"required,gt=0"`
	Qty            decimal.Decimal `json:"qty" validate:"required"`
	ReferenceID    int64           `json:"reference_id"`
}

func (h *Handler) createTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.Transfer(r.Context(), TransferInput{
		ProductID:      req.ProductID,
		SrcWarehouseID: req.SrcWarehouseID,
		DstWarehouseID: req.DstWarehouseID,
		Qty:            req.Qty,
		ReferenceID:    req.ReferenceID,
	})
	if err != nil {
		h.logger.Error("transfer stock", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}
