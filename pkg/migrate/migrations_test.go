package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/construplaza/construplaza-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestFiscalMigrationSeedsNCFSeries(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_fiscal_tables.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no fiscal migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE ncf_sequences",
		"'B01'",
		"'B02'",
		"'B14'",
		"'B15'",
		"'E31'",
		"CREATE UNIQUE INDEX idx_invoices_ncf ON invoices (ncf)",
		"CREATE UNIQUE INDEX idx_invoices_payment_id ON invoices (payment_id)",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
