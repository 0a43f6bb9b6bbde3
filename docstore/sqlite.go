package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/billbatista/acasinha-trip/docstore/migrations"
	"github.com/billbatista/acasinha-trip/migrate"
	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	name:      "sqlite",
	selectDoc: `SELECT data, revision, updated_at FROM documents WHERE path = $1`,
	getDoc:    `SELECT data, revision, updated_at FROM documents WHERE path = $1`,
	upsert: `INSERT INTO documents (path, data, revision, updated_at) VALUES ($1, $2, $3, $4)
             ON CONFLICT (path) DO UPDATE SET data = excluded.data, revision = excluded.revision, updated_at = excluded.updated_at`,
	serializeWrites: true,
}

// OpenSQLite opens a file backed store. Change notifications are delivered
// in process only, so one server should own the file.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate.Apply(ctx, db, migrations.SQLite, "sqlite"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return newSQLStore(db, sqliteDialect), nil
}
