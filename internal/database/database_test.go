package database

import (
	"strings"
	"testing"
)

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	if err := Migrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Expected second migrate to be a no-op, got %v", err)
	}

	var applied int
	if err := db.Get(&applied, `SELECT COUNT(*) FROM schema_migrations`); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("Failed to load migrations: %v", err)
	}
	if applied != len(migrations) {
		t.Errorf("Expected %d applied migrations, got %d", len(migrations), applied)
	}

	for _, table := range []string{"users", "devices", "usage_records", "device_schedules", "energy_policies", "policy_enforcement_logs"} {
		var n int
		if err := db.Get(&n, `SELECT COUNT(*) FROM `+table); err != nil {
			t.Errorf("Expected table %s to exist: %v", table, err)
		}
	}
}

func TestLoadMigrationsOrdered(t *testing.T) {
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("Failed to load migrations: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("Expected embedded migrations")
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version <= migrations[i-1].Version {
			t.Errorf("Expected ascending versions, got %d after %d", migrations[i].Version, migrations[i-1].Version)
		}
	}
	if migrations[0].Name != "init" {
		t.Errorf("Expected first migration to be init, got %s", migrations[0].Name)
	}
}

func TestDialectRewritesForSQLite(t *testing.T) {
	db, err := Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	got := dialect(db, "id BIGSERIAL PRIMARY KEY, at TIMESTAMPTZ NOT NULL")
	if strings.Contains(got, "BIGSERIAL") || strings.Contains(got, "TIMESTAMPTZ") {
		t.Errorf("Expected postgres types to be rewritten, got %q", got)
	}
	if !strings.Contains(got, "INTEGER PRIMARY KEY AUTOINCREMENT") {
		t.Errorf("Expected sqlite autoincrement key, got %q", got)
	}
}
