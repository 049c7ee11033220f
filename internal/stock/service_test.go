package stock

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/emiliomarin/wholesale-backend/internal/ledger"
	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
	"github.com/emiliomarin/wholesale-backend/pkg/enums"
	pkgerrors "github.com/emiliomarin/wholesale-backend/pkg/errors"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupStockTestDB(t *testing.T) *gorm.DB {
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
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newStockService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db))
	require.NoError(t, err)
	svc, err := NewService(testTxRunner{db: db}, NewRepository(db), ledgerSvc)
	require.NoError(t, err)
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, stockQty int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := db.Exec(
		`INSERT INTO products (id, sku, name, wholesale_price, moq, stock_quantity) VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), "SKU-"+id.String()[:8], "Widget", "100", 1, stockQty,
	).Error
	require.NoError(t, err)
	return id
}

func seedLot(t *testing.T, db *gorm.DB, productID uuid.UUID, qty int, cost string, purchased time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	unit := decimal.RequireFromString(cost)
	total := unit.Mul(decimal.NewFromInt(int64(qty))).Round(2)
	err := db.Exec(
		`INSERT INTO stock_lots (id, product_id, quantity_received, quantity_remaining, cost_per_unit, total_cost, purchase_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), productID.String(), qty, qty, unit.String(), total.String(), purchased, purchased,
	).Error
	require.NoError(t, err)
	return id
}

func productStock(t *testing.T, db *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var qty int
	require.NoError(t, db.Raw(`SELECT stock_quantity FROM products WHERE id = ?`, productID.String()).Scan(&qty).Error)
	return qty
}

func lotRemaining(t *testing.T, db *gorm.DB, lotID uuid.UUID) int {
	t.Helper()
	var qty int
	require.NoError(t, db.Raw(`SELECT quantity_remaining FROM stock_lots WHERE id = ?`, lotID.String()).Scan(&qty).Error)
	return qty
}

func TestReceiveCreatesLotAndLedgerEntry(t *testing.T) {
	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	productID := seedProduct(t, db, 0)

	lot, err := svc.Receive(context.Background(), ReceiveInput{
		ProductID:   productID,
		Quantity:    100,
		CostPerUnit: decimal.RequireFromString("10.50"),
		Supplier:    "Acme Importers",
	})
	require.NoError(t, err)

	assert.Equal(t, 100, lot.QuantityReceived)
	assert.Equal(t, 100, lot.QuantityRemaining)
	assert.True(t, lot.TotalCost.Equal(decimal.RequireFromString("1050")), "total cost %s", lot.TotalCost)
	require.NotNil(t, lot.Supplier)
	assert.Equal(t, "Acme Importers", *lot.Supplier)
	assert.False(t, lot.PurchaseDate.IsZero())

	assert.Equal(t, 100, productStock(t, db, productID))

	var entries []models.LedgerEntry
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.LedgerDirectionDebit, entries[0].Direction)
	assert.Equal(t, enums.LedgerCategoryInventory, entries[0].Category)
	assert.Equal(t, enums.LedgerSourceStockLot, entries[0].SourceType)
	assert.Equal(t, lot.ID, entries[0].SourceID)
}

func TestReceiveRejectsBadInput(t *testing.T) {
	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	productID := seedProduct(t, db, 0)

	_, err := svc.Receive(context.Background(), ReceiveInput{ProductID: productID, Quantity: 0, CostPerUnit: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Receive(context.Background(), ReceiveInput{ProductID: uuid.Nil, Quantity: 5, CostPerUnit: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Receive(context.Background(), ReceiveInput{ProductID: productID, Quantity: 5, CostPerUnit: decimal.NewFromInt(-1)})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	// unknown products are rejected inside the transaction
	_, err = svc.Receive(context.Background(), ReceiveInput{ProductID: uuid.New(), Quantity: 5, CostPerUnit: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestAllocateFIFOWalksOldestLotsFirst(t *testing.T) {
	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	productID := seedProduct(t, db, 15)
	older := seedLot(t, db, productID, 5, "10.50", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC))
	newer := seedLot(t, db, productID, 10, "11.75", time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC))

	orderID := uuid.New()
	result, err := svc.Allocate(context.Background(), db, AllocationRequest{
		ProductID:   productID,
		OrderID:     orderID,
		OrderLineID: uuid.New(),
		Quantity:    8,
		Policy:      enums.AllocationPolicyFIFO,
	})
	require.NoError(t, err)

	require.Len(t, result.Allocations, 2)
	assert.Equal(t, older, result.Allocations[0].LotID)
	assert.Equal(t, 5, result.Allocations[0].QuantityFromLot)
	assert.True(t, result.Allocations[0].CostPerUnitAtAllocation.Equal(decimal.RequireFromString("10.50")))
	assert.Equal(t, newer, result.Allocations[1].LotID)
	assert.Equal(t, 3, result.Allocations[1].QuantityFromLot)
	assert.True(t, result.Allocations[1].CostPerUnitAtAllocation.Equal(decimal.RequireFromString("11.75")))

	// 5*10.50 + 3*11.75
	assert.True(t, result.TotalCost.Equal(decimal.RequireFromString("87.75")), "total %s", result.TotalCost)
	assert.True(t, result.AverageCost.Equal(decimal.RequireFromString("10.97")), "average %s", result.AverageCost)

	assert.Equal(t, 0, lotRemaining(t, db, older))
	assert.Equal(t, 7, lotRemaining(t, db, newer))
	assert.Equal(t, 7, productStock(t, db, productID))
}

func TestAllocateWACUsesOneBlendedCost(t *testing.T) {
	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	productID := seedProduct(t, db, 15)
	seedLot(t, db, productID, 5, "10.50", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC))
	seedLot(t, db, productID, 10, "11.75", time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC))

	result, err := svc.Allocate(context.Background(), db, AllocationRequest{
		ProductID:   productID,
		OrderID:     uuid.New(),
		OrderLineID: uuid.New(),
		Quantity:    8,
		Policy:      enums.AllocationPolicyWAC,
	})
	require.NoError(t, err)

	// (5*10.50 + 10*11.75) / 15 = 11.33
	wac := decimal.RequireFromString("11.33")
	require.Len(t, result.Allocations, 2)
	for _, allocation := range result.Allocations {
		assert.True(t, allocation.CostPerUnitAtAllocation.Equal(wac), "allocation cost %s", allocation.CostPerUnitAtAllocation)
	}
	assert.True(t, result.TotalCost.Equal(decimal.RequireFromString("90.64")), "total %s", result.TotalCost)
	assert.True(t, result.AverageCost.Equal(wac), "average %s", result.AverageCost)
}

func TestAllocateInsufficientStockIsAllOrNothing(t *testing.T) {
	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	productID := seedProduct(t, db, 15)
	older := seedLot(t, db, productID, 5, "10.50", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC))
	newer := seedLot(t, db, productID, 10, "11.75", time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC))

	_, err := svc.Allocate(context.Background(), db, AllocationRequest{
		ProductID:   productID,
		OrderID:     uuid.New(),
		OrderLineID: uuid.New(),
		Quantity:    20,
		Policy:      enums.AllocationPolicyFIFO,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	details, ok := appErr.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 20, details["requested"])
	assert.Equal(t, 15, details["available"])

	assert.Equal(t, 5, lotRemaining(t, db, older))
	assert.Equal(t, 10, lotRemaining(t, db, newer))
	assert.Equal(t, 15, productStock(t, db, productID))

	var count int64
	require.NoError(t, db.Model(&models.StockAllocation{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAllocateRequiresTransactionAndPolicy(t *testing.T) {
	db := setupStockTestDB(t)
	svc := newStockService(t, db)

	_, err := svc.Allocate(context.Background(), nil, AllocationRequest{ProductID: uuid.New(), Quantity: 1, Policy: enums.AllocationPolicyFIFO})
	assert.Error(t, err)

	_, err = svc.Allocate(context.Background(), db, AllocationRequest{ProductID: uuid.New(), Quantity: 1, Policy: "lifo"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestRestoreCreatesFreshLot(t *testing.T) {
	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	productID := seedProduct(t, db, 0)

	lot, err := svc.Restore(context.Background(), db, RestoreInput{
		ProductID:   productID,
		Quantity:    8,
		CostPerUnit: decimal.RequireFromString("10.97"),
		Reference:   "return of order 12",
	})
	require.NoError(t, err)

	assert.Equal(t, 8, lot.QuantityRemaining)
	require.NotNil(t, lot.Reference)
	assert.Equal(t, "return of order 12", *lot.Reference)
	assert.Equal(t, 8, productStock(t, db, productID))

	lots, err := svc.ListLots(context.Background(), productID)
	require.NoError(t, err)
	assert.Len(t, lots, 1)
}
