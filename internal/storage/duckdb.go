package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/marcboeker/go-duckdb"
)

// OpenDuckDB opens the embedded columnar backend and runs the schema
// migration. The logical schema is identical to SQLite's; the DDL in
// schema.go sticks to types both engines accept.
func OpenDuckDB(path string) (DB, error) {
	db, err := sqlx.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping duckdb %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &sqlDB{db: db, backend: BackendDuckDB}, nil
}
