package prices

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/atlas-ims/atlas-ims/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/suppliers/{supplierID}", h.ListForSupplier)
	r.Get("/suppliers/{supplierID}/products/{productID}", h.Current)
	r.Post("/", h.Create)
	r.Delete("/{id}", h.Delete)
}

func (h *Handler) ListForSupplier(w http.ResponseWriter, r *http.Request) {
	supplierID, err := strconv.ParseInt(chi.URLParam(r, "supplierID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid supplier id")
		return
	}
	prices, err := h.service.ListForSupplier(r.Context(), supplierID)
	if err != nil {
		h.logger.Error("list prices failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"prices": prices})
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	supplierID, err := strconv.ParseInt(chi.URLParam(r, "supplierID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid supplier id")
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	price, err := h.service.UnitPrice(r.Context(), supplierID, productID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"supplier_id": supplierID,
		"product_id":  productID,
		"unit_price":  price,
	})
}

type createPriceRequest struct {
	SupplierID    int64           `json:"supplier_id"`
	ProductID     int64           `json:"product_id"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	EffectiveDate string          `json:"effective_date"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPriceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	price := SupplierPrice{
		SupplierID: req.SupplierID,
		ProductID:  req.ProductID,
		UnitPrice:  req.UnitPrice,
	}
	if req.EffectiveDate != "" {
		d, err := time.Parse("2006-01-02", req.EffectiveDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "effective_date must be YYYY-MM-DD")
			return
		}
		price.EffectiveDate = d
	}

	created, err := h.service.Create(r.Context(), price)
	if err != nil {
		h.logger.Error("create price failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid price id")
		return
	}
	supplierID, _ := strconv.ParseInt(r.URL.Query().Get("supplier_id"), 10, 64)
	productID, _ := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)

	if err := h.service.Delete(r.Context(), id, supplierID, productID); err != nil {
		h.logger.Error("delete price failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
