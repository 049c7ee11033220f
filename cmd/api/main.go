package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/emiliomarin/wholesale-backend/api/routes"
	"github.com/emiliomarin/wholesale-backend/internal/customers"
	"github.com/emiliomarin/wholesale-backend/internal/fulfillment"
	"github.com/emiliomarin/wholesale-backend/internal/ledger"
	"github.com/emiliomarin/wholesale-backend/internal/orders"
	"github.com/emiliomarin/wholesale-backend/internal/payments"
	"github.com/emiliomarin/wholesale-backend/internal/products"
	"github.com/emiliomarin/wholesale-backend/internal/reports"
	"github.com/emiliomarin/wholesale-backend/internal/returns"
	"github.com/emiliomarin/wholesale-backend/internal/stock"
	"github.com/emiliomarin/wholesale-backend/pkg/config"
	"github.com/emiliomarin/wholesale-backend/pkg/db"
	"github.com/emiliomarin/wholesale-backend/pkg/enums"
	"github.com/emiliomarin/wholesale-backend/pkg/env"
	"github.com/emiliomarin/wholesale-backend/pkg/logger"
	"github.com/emiliomarin/wholesale-backend/pkg/metrics"
	"github.com/emiliomarin/wholesale-backend/pkg/migrate"
	"github.com/emiliomarin/wholesale-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	fulfillMetrics := metrics.NewFulfillmentMetrics(registry)

	gdb := dbClient.DB()
	customerRepo := customers.NewRepository(gdb)
	productRepo := products.NewRepository(gdb)
	orderRepo := orders.NewRepository(gdb)
	paymentRepo := payments.NewRepository(gdb)
	reportRepo := reports.NewRepository(gdb)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gdb))
	requireService(logg, "ledger", err)

	stockSvc, err := stock.NewService(dbClient, stock.NewRepository(gdb), ledgerSvc)
	requireService(logg, "stock", err)

	orderSvc, err := orders.NewService(dbClient, orderRepo, productRepo, customerRepo, logg)
	requireService(logg, "orders", err)

	fulfillSvc, err := fulfillment.NewService(fulfillment.Params{
		Tx:            dbClient,
		OrderRepo:     orderRepo,
		ReportRepo:    reportRepo,
		StockSvc:      stockSvc,
		LedgerSvc:     ledgerSvc,
		Metrics:       fulfillMetrics,
		Logger:        logg,
		DefaultPolicy: enums.AllocationPolicy(strings.ToLower(cfg.Fulfillment.AllocationPolicy)),
	})
	requireService(logg, "fulfillment", err)

	paymentSvc, err := payments.NewService(dbClient, paymentRepo, orderRepo, ledgerSvc, logg)
	requireService(logg, "payments", err)

	returnSvc, err := returns.NewService(dbClient, orderRepo, stockSvc, ledgerSvc, logg)
	requireService(logg, "returns", err)

	reportSvc, err := reports.NewService(reportRepo)
	requireService(logg, "reports", err)

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DBPinger:     dbClient,
			RedisClient:  redisClient,
			Registry:     registry,
			CustomerRepo: customerRepo,
			ProductRepo:  productRepo,
			OrderSvc:     orderSvc,
			StockSvc:     stockSvc,
			LedgerSvc:    ledgerSvc,
			FulfillSvc:   fulfillSvc,
			PaymentSvc:   paymentSvc,
			ReturnSvc:    returnSvc,
			ReportSvc:    reportSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name+" service", err)
	os.Exit(1)
}
