// Package migrate wraps goose for the SQL files under migrations/.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"
)

// DefaultDir is the migrations directory relative to the repo root.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// embeddedDir is the directory inside embedded that holds the .sql files.
const embeddedDir = "migrations"

// FS exposes the migrations compiled into the binary, rooted above
// migrations/.
func FS() fs.FS {
	return embedded
}

// Migrator applies one set of migrations to one database. It does not own
// the *sql.DB.
type Migrator struct {
	provider *goose.Provider
}

// New builds a migrator over the .sql files at the root of fsys.
func New(db *sql.DB, fsys fs.FS) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

// NewEmbedded uses the compiled-in migrations.
func NewEmbedded(db *sql.DB) (*Migrator, error) {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		return nil, err
	}
	return New(db, sub)
}

// NewFromDir reads migrations from dir on disk.
func NewFromDir(db *sql.DB, dir string) (*Migrator, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("dir is required")
	}
	return New(db, os.DirFS(dir))
}

// Up applies every pending migration and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return len(results), fmt.Errorf("goose up: %w", err)
	}
	return len(results), nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) error {
	if _, err := m.provider.Down(ctx); err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// Status describes every known migration in version order.
func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	return m.provider.Status(ctx)
}

func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}

// MigrateTo moves the schema up or down until target is the newest applied
// version.
func (m *Migrator) MigrateTo(ctx context.Context, target int64) error {
	current, err := m.Version(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}
	switch direction(current, target) {
	case 1:
		if _, err := m.provider.UpTo(ctx, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	case -1:
		if _, err := m.provider.DownTo(ctx, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}

func direction(current, target int64) int {
	switch {
	case target > current:
		return 1
	case target < current:
		return -1
	default:
		return 0
	}
}

// ParseVersion accepts the YYYYMMDDHHMMSS prefix used by migration files.
func ParseVersion(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) != len(timestampLayout) {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", raw)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", raw)
	}
	return v, nil
}
