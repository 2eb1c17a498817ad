package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"inspiranet/internal/constants"
	"inspiranet/internal/migrations"
	"inspiranet/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// Database is the SQLite-backed message and conversation store.
type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(cfg models.DatabaseConfig) (*Database, error) {
	dbPath := cfg.Path
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, constants.DefaultDirectoryPermissions); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, constants.DefaultFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	dsn := dbPath + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := cfg.MaxOpenConnections
	if maxOpen <= 0 {
		maxOpen = constants.DefaultMaxOpenConnections
	}
	db.SetMaxOpenConns(maxOpen)

	fail := func(stage string, err error) (*Database, error) {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to %s: %w (close error: %v)", stage, err, closeErr)
		}
		return nil, fmt.Errorf("failed to %s: %w", stage, err)
	}

	if err := db.Ping(); err != nil {
		return fail("ping database", err)
	}

	if err := applyMigrations(db); err != nil {
		return fail("initialize schema", err)
	}

	enc, err := newEncryptor(cfg.EncryptMediaRefs, os.Getenv(constants.EncryptionSecretEnv))
	if err != nil {
		return fail("initialize encryptor", err)
	}

	return &Database{db: db, encryptor: enc}, nil
}

func applyMigrations(db *sql.DB) error {
	all, err := migrations.All()
	if err != nil {
		return err
	}
	for _, m := range all {
		if _, err := db.Exec(m.SQL); err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timeFromNull(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// chunk splits ids into slices no longer than size so IN lists stay under
// SQLite's bound-parameter limit.
func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
