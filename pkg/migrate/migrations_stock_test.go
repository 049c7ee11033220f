package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/emiliomarin/wholesale-backend/pkg/migrate"
)

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir should validate: %v", err)
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestStockMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_stock_tables.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS stock_lots",
		"CHECK (quantity_received > 0)",
		"CHECK (quantity_remaining >= 0)",
		"idx_stock_lots_product_purchase_date",
		"CREATE TABLE IF NOT EXISTS stock_allocations",
		"CHECK (quantity_from_lot > 0)",
		"DROP TABLE IF EXISTS stock_allocations",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestFinanceMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_finance_tables.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS ledger_entries",
		"CHECK (fiscal_month BETWEEN 1 AND 12)",
		"CREATE TABLE IF NOT EXISTS profit_reports",
		"order_id UUID NOT NULL UNIQUE REFERENCES orders(id)",
		"CREATE TABLE IF NOT EXISTS payments",
		"transaction_id TEXT UNIQUE",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
