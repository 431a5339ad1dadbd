package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atlas-ims/atlas-ims/internal/auth"
	"github.com/atlas-ims/atlas-ims/internal/costing"
	"github.com/atlas-ims/atlas-ims/internal/masterdata/categories"
	"github.com/atlas-ims/atlas-ims/internal/masterdata/customers"
	"github.com/atlas-ims/atlas-ims/internal/masterdata/prices"
	"github.com/atlas-ims/atlas-ims/internal/masterdata/products"
	"github.com/atlas-ims/atlas-ims/internal/masterdata/suppliers"
	"github.com/atlas-ims/atlas-ims/internal/masterdata/units"
	"github.com/atlas-ims/atlas-ims/internal/masterdata/warehouses"
	"github.com/atlas-ims/atlas-ims/internal/purchasing"
	"github.com/atlas-ims/atlas-ims/internal/rbac"
	"github.com/atlas-ims/atlas-ims/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AuthService *auth.Service
	RBAC        rbac.Middleware

	AuthHandler       *auth.Handler
	UsersHandler      *users.Handler
	PurchasingHandler *purchasing.Handler
	CostingHandler    *costing.Handler
	SuppliersHandler  *suppliers.Handler
	ProductsHandler   *products.Handler
	WarehousesHandler *warehouses.Handler
	CategoriesHandler *categories.Handler
	UnitsHandler      *units.Handler
	CustomersHandler  *customers.Handler
	PricesHandler     *prices.Handler
}

// NewRouter constructs the chi.Router with the API surface.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)

		// Everything below requires a valid token.
		r.Group(func(r chi.Router) {
			r.Use(params.AuthService.Authenticator)

			r.Route("/purchasing", func(r chi.Router) {
				r.Use(params.RBAC.RequireAny("purchasing.view", "purchasing.edit"))
				params.PurchasingHandler.MountRoutes(r)
			})
			r.Route("/inventory", func(r chi.Router) {
				r.Use(params.RBAC.RequireAny("inventory.view", "inventory.edit"))
				params.CostingHandler.MountRoutes(r)
			})

			r.Route("/masterdata", func(r chi.Router) {
				r.Use(params.RBAC.RequireAny("master.view", "master.edit"))
				r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
				r.Route("/products", params.ProductsHandler.MountRoutes)
				r.Route("/warehouses", params.WarehousesHandler.MountRoutes)
				r.Route("/categories", params.CategoriesHandler.MountRoutes)
				r.Route("/units", params.UnitsHandler.MountRoutes)
				r.Route("/customers", params.CustomersHandler.MountRoutes)
				r.Route("/prices", params.PricesHandler.MountRoutes)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(params.RBAC.RequireAll("admin"))
				params.UsersHandler.MountRoutes(r)
			})
		})
	})

	return r
}
