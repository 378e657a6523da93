// Package store provides the persistent document store backends: an
// embedded SQLite database for local use and MongoDB for hosted
// deployments.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abhisek/examprep/internal/docstore"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Open connects to the store addressed by dsn:
//
//	memory://               in-process store, lost on exit
//	mongodb://, mongodb+srv://  MongoDB (database name from EXAMPREP_MONGO_DATABASE)
//	anything else           SQLite database file path or DSN
func Open(ctx context.Context, dsn string) (docstore.Store, error) {
	switch {
	case dsn == "memory://" || dsn == "memory":
		return docstore.NewMemory(), nil
	case strings.HasPrefix(dsn, "mongodb://"), strings.HasPrefix(dsn, "mongodb+srv://"):
		return OpenMongo(ctx, MongoConfig{URI: dsn, Database: mongoDatabase()})
	default:
		if err := ensureDir(strings.TrimPrefix(dsn, "file:")); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		return OpenSQLite(dsn)
	}
}

func mongoDatabase() string {
	if db := os.Getenv("EXAMPREP_MONGO_DATABASE"); db != "" {
		return db
	}
	return "examprep"
}

// applyPragmas configures SQLite for a single-writer workload.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. EXAMPREP_DB environment variable
// 2. $XDG_DATA_HOME/examprep/examprep.db
// 3. ~/.local/share/examprep/examprep.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("EXAMPREP_DB"); p != "" {
		if isRemote(p) {
			return p, nil
		}
		return p, ensureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "examprep", "examprep.db")
	return p, ensureDir(p)
}

func isRemote(dsn string) bool {
	return strings.Contains(dsn, "://") && !strings.HasPrefix(dsn, "file:")
}

// ensureDir creates the parent directory of path if it doesn't exist.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
