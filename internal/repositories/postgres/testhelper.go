package postgres

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/asakaida/contentkit/internal/infrastructure/config"
	"github.com/asakaida/contentkit/internal/infrastructure/database"
	_ "github.com/lib/pq"
)

// SetupTestDB connects to the test database and runs migrations.
// The test is skipped when no database is reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	if err := config.InitConfig("test"); err != nil {
		t.Skipf("Skipping database test: failed to init config: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Skipf("Skipping database test: failed to load config: %v", err)
	}

	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		t.Skipf("Skipping database test: database not available: %v", err)
	}

	if err := pg.RunMigrations("../../../internal/infrastructure/database/migrations/postgres"); err != nil {
		pg.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanTables(t, pg.DB)
	return pg.DB
}

// CleanupTestDB removes test data and closes the connection
func CleanupTestDB(t *testing.T, db *sql.DB) {
	t.Helper()

	cleanTables(t, db)

	if err := db.Close(); err != nil {
		t.Logf("Warning: Failed to close database: %v", err)
	}
}

func cleanTables(t *testing.T, db *sql.DB) {
	t.Helper()

	// content_fields first; it references contents
	tables := []string{"content_fields", "relations", "contents", "contenttype_versions"}
	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("Warning: Failed to clean up table %s: %v", table, err)
		}
	}
}
