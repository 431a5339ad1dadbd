package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlas-ims/atlas-ims/internal/app"
	"github.com/atlas-ims/atlas-ims/internal/auth"
	"github.com/atlas-ims/atlas-ims/internal/costing"
	"github.com/atlas-ims/atlas-ims/internal/masterdata/categories"
	"github.com/atlas-ims/atlas-ims/internal/masterdata/customers"
	"github.com/atlas-ims/atlas-ims/internal/masterdata/prices"
	"github.com/atlas-ims/atlas-ims/internal/masterdata/products"
	"github.com/atlas-ims/atlas-ims/internal/masterdata/suppliers"
	"github.com/atlas-ims/atlas-ims/internal/masterdata/units"
	"github.com/atlas-ims/atlas-ims/internal/masterdata/warehouses"
	"github.com/atlas-ims/atlas-ims/internal/platform/cache"
	"github.com/atlas-ims/atlas-ims/internal/platform/db"
	"github.com/atlas-ims/atlas-ims/internal/purchasing"
	"github.com/atlas-ims/atlas-ims/internal/rbac"
	"github.com/atlas-ims/atlas-ims/internal/users"
)

// catalog adapts the master data services to the reference checks
// purchasing needs when accepting orders and receipts.
type catalog struct {
	suppliers  *suppliers.Service
	products   *products.Service
	warehouses *warehouses.Service
}

func (c catalog) SupplierExists(ctx context.Context, id int64) (bool, error) {
	return c.suppliers.Exists(ctx, id)
}

func (c catalog) ProductExists(ctx context.Context, id int64) (bool, error) {
	return c.products.Exists(ctx, id)
}

func (c catalog) WarehouseExists(ctx context.Context, id int64) (bool, error) {
	return c.warehouses.Exists(ctx, id)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, cfg.JWTSecret, cfg.JWTTTL)
	authHandler := auth.NewHandler(logger, authService)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService)

	rbacMiddleware := rbac.Middleware{Logger: logger}

	suppliersService := suppliers.NewService(suppliers.NewRepository(dbpool))
	productsService := products.NewService(products.NewRepository(dbpool))
	warehousesService := warehouses.NewService(warehouses.NewRepository(dbpool))
	categoriesService := categories.NewService(dbpool)
	unitsService := units.NewService(dbpool)
	customersService := customers.NewService(dbpool)
	pricesService := prices.NewService(logger, prices.NewRepository(dbpool), redisClient)

	costingRepo := costing.NewRepository(dbpool)
	costingService := costing.NewService(costingRepo)
	costingHandler := costing.NewHandler(logger, costingService)

	purchasingRepo := purchasing.NewRepository(dbpool)
	purchasingNumbers := purchasing.NewSequenceNumbers(dbpool)
	purchasingService := purchasing.NewService(logger, purchasingRepo, purchasingNumbers, pricesService, catalog{
		suppliers:  suppliersService,
		products:   productsService,
		warehouses: warehousesService,
	})
	purchasingHandler := purchasing.NewHandler(logger, purchasingService)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AuthService:       authService,
		RBAC:              rbacMiddleware,
		AuthHandler:       authHandler,
		UsersHandler:      usersHandler,
		PurchasingHandler: purchasingHandler,
		CostingHandler:    costingHandler,
		SuppliersHandler:  suppliers.NewHandler(logger, suppliersService),
		ProductsHandler:   products.NewHandler(logger, productsService),
		WarehousesHandler: warehouses.NewHandler(logger, warehousesService),
		CategoriesHandler: categories.NewHandler(logger, categoriesService),
		UnitsHandler:      units.NewHandler(logger, unitsService),
		CustomersHandler:  customers.NewHandler(logger, customersService),
		PricesHandler:     prices.NewHandler(logger, pricesService),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
