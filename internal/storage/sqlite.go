// Package storage provides the data access layer over a Tirika SQLite database.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/ahiokk/tirika-import/internal/common"
)

// Store wraps an already-existing Tirika database file. The schema is owned
// by the POS application; the importer never creates or migrates it.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open connects to the Tirika database at dbPath. The file must already
// exist. Transactions take an immediate write lock, which is the importer's
// single-writer guarantee.
func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, common.NewStorageError("путь к базе не задан", nil)
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, common.NewStorageError(fmt.Sprintf("Файл базы не найден: %s", dbPath), err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, common.NewStorageError("не удалось открыть базу", err)
	}

	// SQLite doesn't benefit from multiple connections, and a single
	// connection keeps the one-import-at-a-time model explicit.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, common.NewStorageError("база недоступна", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DBPath returns the path of the underlying database file.
func (s *Store) DBPath() string {
	return s.dbPath
}

// wrapStorageErr converts a low-level database error into a StorageError,
// replacing the message for the common read-only case with guidance the
// user can act on.
func wrapStorageErr(msg string, err error) error {
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "readonly") {
		return common.NewStorageError(
			"База открыта только для чтения. Запустите программу с правами администратора "+
				"или перенесите базу в папку с правом записи.", err)
	}
	return common.NewStorageError(msg, err)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// The target schema has no sequences; callers compute max(id)+1 while
// holding the transaction's write lock.
func maxTableID(ctx context.Context, q querier, table string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) FROM "+table).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read max id of %s: %w", table, err)
	}
	return id, nil
}

func nextTableID(ctx context.Context, q querier, table string) (int64, error) {
	id, err := maxTableID(ctx, q, table)
	if err != nil {
		return 0, err
	}
	return id + 1, nil
}
