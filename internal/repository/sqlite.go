package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opensource-finance/leadscore/internal/domain"
	_ "modernc.org/sqlite"
)

// memoryPath selects a private in-memory database.
const memoryPath = ":memory:"

var filePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
	"foreign_keys(ON)",
}

// openSQLite opens the pure Go SQLite driver. File databases get WAL
// and a busy timeout so the API and the worker can share them.
func openSQLite(cfg domain.RepositoryConfig) (*sql.DB, error) {
	path := cmpOr(cfg.SQLitePath, "./leadscore.db")

	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database %s: %w", path, err)
	}

	return db, nil
}

func sqliteDSN(path string) (string, error) {
	if path == memoryPath {
		return "file::memory:?_pragma=foreign_keys(ON)", nil
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	return "file:" + path + "?_pragma=" + strings.Join(filePragmas, "&_pragma="), nil
}

// isMemorySQLite reports whether every connection would open a separate
// empty database.
func isMemorySQLite(cfg domain.RepositoryConfig) bool {
	return cfg.Driver == "sqlite" && cfg.SQLitePath == memoryPath
}
