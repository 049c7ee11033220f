package fulfillment

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/emiliomarin/wholesale-backend/internal/ledger"
	"github.com/emiliomarin/wholesale-backend/internal/orders"
	"github.com/emiliomarin/wholesale-backend/internal/reports"
	"github.com/emiliomarin/wholesale-backend/internal/stock"
	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
	"github.com/emiliomarin/wholesale-backend/pkg/enums"
	pkgerrors "github.com/emiliomarin/wholesale-backend/pkg/errors"
	"github.com/emiliomarin/wholesale-backend/pkg/logger"
	"github.com/emiliomarin/wholesale-backend/pkg/metrics"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupFulfillmentTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  description TEXT,
  wholesale_price TEXT NOT NULL,
  moq INTEGER NOT NULL DEFAULT 1,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS stock_lots (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  quantity_received INTEGER NOT NULL,
  quantity_remaining INTEGER NOT NULL,
  cost_per_unit TEXT NOT NULL,
  total_cost TEXT NOT NULL,
  purchase_date DATETIME NOT NULL,
  supplier TEXT,
  reference TEXT,
  tags TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS stock_allocations (
  id TEXT PRIMARY KEY,
  lot_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  order_line_id TEXT NOT NULL,
  quantity_from_lot INTEGER NOT NULL,
  cost_per_unit_at_allocation TEXT NOT NULL,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number INTEGER NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  subtotal TEXT NOT NULL,
  discount_total TEXT NOT NULL DEFAULT '0',
  shipping_expense TEXT NOT NULL DEFAULT '0',
  total TEXT NOT NULL,
  amount_paid TEXT NOT NULL DEFAULT '0',
  fulfilled INTEGER NOT NULL DEFAULT 0,
  fulfilled_at DATETIME,
  returned_at DATETIME,
  return_reason TEXT,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS order_lines (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  sku TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  base_unit_price TEXT NOT NULL,
  tier_price TEXT NOT NULL,
  applied_tier_id TEXT,
  discount_amount TEXT NOT NULL DEFAULT '0',
  final_unit_price TEXT NOT NULL,
  final_line_total TEXT NOT NULL,
  total_savings TEXT NOT NULL DEFAULT '0',
  cost_per_unit TEXT,
  total_cost TEXT,
  profit_per_unit TEXT,
  total_profit TEXT,
  profit_margin TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  method TEXT NOT NULL DEFAULT 'cash',
  state TEXT NOT NULL DEFAULT 'paid',
  transaction_id TEXT UNIQUE,
  reason TEXT,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS ledger_entries (
  id TEXT PRIMARY KEY,
  direction TEXT NOT NULL,
  category TEXT NOT NULL,
  amount TEXT NOT NULL,
  source_type TEXT NOT NULL,
  source_id TEXT NOT NULL,
  fiscal_year INTEGER NOT NULL,
  fiscal_month INTEGER NOT NULL,
  memo TEXT,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS profit_reports (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  revenue TEXT NOT NULL,
  cost_of_goods TEXT NOT NULL,
  gross_profit TEXT NOT NULL,
  expenses TEXT,
  net_profit TEXT NOT NULL,
  profit_margin TEXT NOT NULL,
  fiscal_year INTEGER NOT NULL,
  fiscal_month INTEGER NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

type fulfillmentFixture struct {
	db        *gorm.DB
	svc       Service
	orderRepo orders.Repository
}

func newFulfillmentFixture(t *testing.T) *fulfillmentFixture {
	t.Helper()
	db := setupFulfillmentTestDB(t)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db))
	require.NoError(t, err)
	stockSvc, err := stock.NewService(testTxRunner{db: db}, stock.NewRepository(db), ledgerSvc)
	require.NoError(t, err)
	orderRepo := orders.NewRepository(db)

	svc, err := NewService(Params{
		Tx:            testTxRunner{db: db},
		OrderRepo:     orderRepo,
		ReportRepo:    reports.NewRepository(db),
		StockSvc:      stockSvc,
		LedgerSvc:     ledgerSvc,
		Metrics:       metrics.NewFulfillmentMetrics(nil),
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DefaultPolicy: enums.AllocationPolicyFIFO,
	})
	require.NoError(t, err)

	return &fulfillmentFixture{db: db, svc: svc, orderRepo: orderRepo}
}

func (f *fulfillmentFixture) seedProduct(t *testing.T, stockQty int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := f.db.Exec(
		`INSERT INTO products (id, sku, name, wholesale_price, moq, stock_quantity) VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), "SKU-"+id.String()[:8], "Widget", "100", 1, stockQty,
	).Error
	require.NoError(t, err)
	return id
}

func (f *fulfillmentFixture) seedLot(t *testing.T, productID uuid.UUID, qty int, cost string, purchased time.Time) {
	t.Helper()
	unit := decimal.RequireFromString(cost)
	total := unit.Mul(decimal.NewFromInt(int64(qty))).Round(2)
	err := f.db.Exec(
		`INSERT INTO stock_lots (id, product_id, quantity_received, quantity_remaining, cost_per_unit, total_cost, purchase_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), productID.String(), qty, qty, unit.String(), total.String(), purchased, purchased,
	).Error
	require.NoError(t, err)
}

type seedLine struct {
	productID uuid.UUID
	quantity  int
	lineTotal string
}

func (f *fulfillmentFixture) seedOrder(t *testing.T, status enums.OrderStatus, number int64, shipping string, lines ...seedLine) uuid.UUID {
	t.Helper()
	orderID := uuid.New()
	linesTotal := decimal.Zero
	for _, line := range lines {
		linesTotal = linesTotal.Add(decimal.RequireFromString(line.lineTotal))
	}
	total := linesTotal.Add(decimal.RequireFromString(shipping))
	err := f.db.Exec(
		`INSERT INTO orders (id, order_number, customer_id, status, subtotal, shipping_expense, total) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		orderID.String(), number, uuid.NewString(), string(status), linesTotal.String(), shipping, total.String(),
	).Error
	require.NoError(t, err)

	for _, line := range lines {
		unit := decimal.RequireFromString(line.lineTotal).Div(decimal.NewFromInt(int64(line.quantity))).Round(2)
		err := f.db.Exec(
			`INSERT INTO order_lines (id, order_id, product_id, product_name, sku, quantity, base_unit_price, tier_price, final_unit_price, final_line_total)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), orderID.String(), line.productID.String(), "Widget", "SKU-1", line.quantity, "100", "80", unit.String(), line.lineTotal,
		).Error
		require.NoError(t, err)
	}
	return orderID
}

func TestCompleteWritesProfitAndLedgerAtomically(t *testing.T) {
	f := newFulfillmentFixture(t)
	productID := f.seedProduct(t, 15)
	f.seedLot(t, productID, 5, "10.50", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC))
	f.seedLot(t, productID, 10, "11.75", time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC))
	orderID := f.seedOrder(t, enums.OrderStatusInTransit, 12, "25", seedLine{productID: productID, quantity: 8, lineTotal: "608"})

	result, err := f.svc.Complete(context.Background(), orderID, enums.AllocationPolicyFIFO)
	require.NoError(t, err)

	report := result.Report
	assert.True(t, report.Revenue.Equal(decimal.RequireFromString("608")), "revenue %s", report.Revenue)
	assert.True(t, report.CostOfGoods.Equal(decimal.RequireFromString("87.75")), "cogs %s", report.CostOfGoods)
	assert.True(t, report.GrossProfit.Equal(decimal.RequireFromString("520.25")), "gross %s", report.GrossProfit)
	assert.True(t, report.NetProfit.Equal(decimal.RequireFromString("495.25")), "net %s", report.NetProfit)
	assert.True(t, report.ProfitMargin.Equal(decimal.RequireFromString("81.46")), "margin %s", report.ProfitMargin)
	assert.Equal(t, time.Now().Year(), report.FiscalYear)
	assert.Equal(t, int(time.Now().Month()), report.FiscalMonth)

	order := result.Order
	assert.True(t, order.Fulfilled)
	require.NotNil(t, order.FulfilledAt)
	assert.Equal(t, enums.OrderStatusDelivered, order.Status)

	require.Len(t, order.Lines, 1)
	line := order.Lines[0]
	require.NotNil(t, line.CostPerUnit)
	assert.True(t, line.CostPerUnit.Equal(decimal.RequireFromString("10.97")), "cost per unit %s", line.CostPerUnit)
	require.NotNil(t, line.TotalCost)
	assert.True(t, line.TotalCost.Equal(decimal.RequireFromString("87.75")))
	require.NotNil(t, line.TotalProfit)
	assert.True(t, line.TotalProfit.Equal(decimal.RequireFromString("520.25")))
	require.NotNil(t, line.ProfitMargin)
	assert.True(t, line.ProfitMargin.Equal(decimal.RequireFromString("85.57")), "line margin %s", line.ProfitMargin)

	// matched revenue/COGS pair reconciles to the order
	var entries []models.LedgerEntry
	require.NoError(t, f.db.Where("source_id = ?", orderID.String()).Order("created_at ASC").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, enums.LedgerDirectionCredit, entries[0].Direction)
	assert.Equal(t, enums.LedgerCategoryRevenue, entries[0].Category)
	assert.True(t, entries[0].Amount.Equal(decimal.RequireFromString("608")))
	assert.Equal(t, enums.LedgerDirectionDebit, entries[1].Direction)
	assert.Equal(t, enums.LedgerCategoryCOGS, entries[1].Category)
	assert.True(t, entries[1].Amount.Equal(decimal.RequireFromString("87.75")))

	// allocation rows persisted against the order
	var allocCount int64
	require.NoError(t, f.db.Model(&models.StockAllocation{}).Where("order_id = ?", orderID.String()).Count(&allocCount).Error)
	assert.Equal(t, int64(2), allocCount)
}

func TestCompleteIsIdempotentPerOrder(t *testing.T) {
	f := newFulfillmentFixture(t)
	productID := f.seedProduct(t, 20)
	f.seedLot(t, productID, 20, "10.50", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC))
	orderID := f.seedOrder(t, enums.OrderStatusInTransit, 13, "0", seedLine{productID: productID, quantity: 8, lineTotal: "608"})

	_, err := f.svc.Complete(context.Background(), orderID, enums.AllocationPolicyFIFO)
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), orderID, enums.AllocationPolicyFIFO)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeAlreadyFulfilled))

	// the second attempt took nothing
	var remaining int
	require.NoError(t, f.db.Raw(`SELECT quantity_remaining FROM stock_lots WHERE product_id = ?`, productID.String()).Scan(&remaining).Error)
	assert.Equal(t, 12, remaining)
}

func TestCompleteInsufficientStockLeavesNothingBehind(t *testing.T) {
	f := newFulfillmentFixture(t)
	stocked := f.seedProduct(t, 20)
	f.seedLot(t, stocked, 20, "10.50", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC))
	starved := f.seedProduct(t, 2)
	f.seedLot(t, starved, 2, "9.00", time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC))

	// first line would succeed; the second line fails and must drag it back
	orderID := f.seedOrder(t, enums.OrderStatusInTransit, 14, "0",
		seedLine{productID: stocked, quantity: 8, lineTotal: "608"},
		seedLine{productID: starved, quantity: 5, lineTotal: "380"},
	)

	_, err := f.svc.Complete(context.Background(), orderID, enums.AllocationPolicyFIFO)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))

	var remaining int
	require.NoError(t, f.db.Raw(`SELECT quantity_remaining FROM stock_lots WHERE product_id = ?`, stocked.String()).Scan(&remaining).Error)
	assert.Equal(t, 20, remaining, "first line's allocation must roll back")

	var allocCount, ledgerCount, reportCount int64
	require.NoError(t, f.db.Model(&models.StockAllocation{}).Count(&allocCount).Error)
	require.NoError(t, f.db.Model(&models.LedgerEntry{}).Count(&ledgerCount).Error)
	require.NoError(t, f.db.Model(&models.ProfitReport{}).Count(&reportCount).Error)
	assert.Zero(t, allocCount)
	assert.Zero(t, ledgerCount)
	assert.Zero(t, reportCount)

	order, err := f.orderRepo.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.False(t, order.Fulfilled)
	assert.Equal(t, enums.OrderStatusInTransit, order.Status)
	assert.Nil(t, order.Lines[0].CostPerUnit)
}

func TestCompleteStatusGuard(t *testing.T) {
	f := newFulfillmentFixture(t)
	productID := f.seedProduct(t, 20)
	f.seedLot(t, productID, 20, "10.50", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC))
	orderID := f.seedOrder(t, enums.OrderStatusPending, 15, "0", seedLine{productID: productID, quantity: 8, lineTotal: "608"})

	_, err := f.svc.Complete(context.Background(), orderID, enums.AllocationPolicyFIFO)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestCompleteUnknownOrderAndPolicy(t *testing.T) {
	f := newFulfillmentFixture(t)

	_, err := f.svc.Complete(context.Background(), uuid.New(), enums.AllocationPolicyFIFO)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Complete(context.Background(), uuid.New(), "lifo")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	// empty policy falls back to the configured default
	productID := f.seedProduct(t, 20)
	f.seedLot(t, productID, 20, "10.50", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC))
	orderID := f.seedOrder(t, enums.OrderStatusDelivered, 16, "0", seedLine{productID: productID, quantity: 4, lineTotal: "304"})
	result, err := f.svc.Complete(context.Background(), orderID, "")
	require.NoError(t, err)
	assert.True(t, result.Report.CostOfGoods.Equal(decimal.RequireFromString("42")), "cogs %s", result.Report.CostOfGoods)
}
