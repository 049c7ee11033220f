package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emiliomarin/wholesale-backend/api/controllers"
	"github.com/emiliomarin/wholesale-backend/api/middleware"
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
	"github.com/emiliomarin/wholesale-backend/pkg/logger"
	"github.com/emiliomarin/wholesale-backend/pkg/redis"
)

// Deps collects everything the HTTP layer needs. Controllers receive the
// narrow service they use; the router only fans the wiring out.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DBPinger    db.Pinger
	RedisClient *redis.Client
	Registry    *prometheus.Registry

	CustomerRepo *customers.Repository
	ProductRepo  *products.Repository

	OrderSvc   orders.Service
	StockSvc   stock.Service
	LedgerSvc  ledger.Service
	FulfillSvc fulfillment.Service
	PaymentSvc payments.Service
	ReturnSvc  returns.Service
	ReportSvc  *reports.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DBPinger, d.RedisClient))
	})

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg != nil && cfg.RateLimit.Enabled() {
			r.Use(middleware.WriteRateLimit(cfg.RateLimit.WriteLimit, cfg.RateLimit.Window, d.RedisClient, logg))
		}
		r.Use(middleware.Idempotency(d.RedisClient, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(d.OrderSvc, logg))
			r.Get("/", controllers.OrderList(d.OrderSvc, logg))
			r.Post("/quote", controllers.OrderQuote(d.OrderSvc, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", controllers.OrderDetail(d.OrderSvc, logg))
				r.Post("/status", controllers.OrderUpdateStatus(d.OrderSvc, d.FulfillSvc, d.ReturnSvc, logg))
				r.Post("/fulfill", controllers.OrderFulfill(d.FulfillSvc, logg))
				r.Post("/return", controllers.OrderReturn(d.ReturnSvc, logg))
				r.Post("/payments", controllers.PaymentRecord(d.PaymentSvc, logg))
				r.Get("/payments", controllers.PaymentList(d.PaymentSvc, logg))
				r.Post("/refunds", controllers.PaymentRefund(d.PaymentSvc, logg))
				r.Get("/allocations", controllers.StockAllocations(d.StockSvc, logg))
				r.Get("/profit-report", controllers.ProfitReportByOrder(d.ReportSvc, logg))
			})
		})

		r.Route("/stock", func(r chi.Router) {
			r.Post("/receive", controllers.StockReceive(d.StockSvc, logg))
		})

		r.Route("/products/{productId}", func(r chi.Router) {
			r.Get("/pricing", controllers.ProductPricing(d.ProductRepo, logg))
			r.Put("/tiers", controllers.ProductReplaceTiers(d.ProductRepo, logg))
			r.Get("/lots", controllers.StockLots(d.StockSvc, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", controllers.CustomerCreate(d.CustomerRepo, logg))
			r.Get("/{customerId}", controllers.CustomerDetail(d.CustomerRepo, logg))
			r.Put("/{customerId}/discount", controllers.CustomerSetDiscount(d.CustomerRepo, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/summary", controllers.ProfitSummary(d.ReportSvc, logg))
			r.Get("/ledger", controllers.LedgerEntries(d.LedgerSvc, logg))
		})
	})

	return r
}
