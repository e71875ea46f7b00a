package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
	require.NoError(t, ValidateEmbedded())
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	embeddedFiles, err := fs.Glob(FS(), "migrations/*.sql")
	require.NoError(t, err)
	diskFiles, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	require.Len(t, embeddedFiles, len(diskFiles))
}

func TestSchemaCarriesCoreConstraints(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)

	var all strings.Builder
	for _, f := range files {
		b, err := os.ReadFile(f)
		require.NoError(t, err)
		all.Write(b)
	}
	content := all.String()

	for _, sub := range []string{
		"CONSTRAINT discounts_code_key UNIQUE (code)",
		"CONSTRAINT discounts_window_check CHECK (start_date <= end_date)",
		"CONSTRAINT admins_app_customer_key UNIQUE (app_id, customer_id)",
		"FOREIGN KEY (discount_id) REFERENCES discounts(id) ON DELETE CASCADE",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (quantity > 0)",
		"DROP TABLE IF EXISTS outbox_events",
	} {
		require.Contains(t, content, sub)
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_missing_down.sql"), []byte("-- +goose Up\n"), 0o644))
	require.Error(t, ValidateDir(dir))

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_swapped.sql"), []byte("-- +goose Down\n-- +goose Up\n"), 0o644))
	require.ErrorContains(t, ValidateDir(dir), "must come before")

	require.Error(t, ValidateDir(t.TempDir()))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	fixed := func() time.Time { return time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC) }

	path, err := CreateSQLMigration(CreateOptions{Dir: dir, Name: "Add Discount Index!", Now: fixed})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260302083000_add_discount_index.sql"), path)
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(CreateOptions{Dir: dir, Name: "add discount index", Now: fixed})
	require.ErrorContains(t, err, "already exists")

	_, err = CreateSQLMigration(CreateOptions{Dir: dir, Name: "!!!"})
	require.Error(t, err)
}

func TestCreateSQLMigrationNoTransaction(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(CreateOptions{Dir: dir, Name: "orders_customer_idx", NoTransaction: true})
	require.NoError(t, err)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(body), "-- +goose NO TRANSACTION\n-- +goose Up"))
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion(" 20260302083000 ")
	require.NoError(t, err)
	require.Equal(t, int64(20260302083000), v)

	for _, bad := range []string{"", "2026", "2026030208300x", "-2026030208300"} {
		_, err := ParseVersion(bad)
		require.Error(t, err, bad)
	}
}

func TestDirection(t *testing.T) {
	require.Equal(t, 1, direction(0, 20260101000000))
	require.Equal(t, -1, direction(20260201000000, 20260101000000))
	require.Zero(t, direction(20260101000000, 20260101000000))
}

func TestNewRequiresDB(t *testing.T) {
	_, err := NewEmbedded(nil)
	require.Error(t, err)
	_, err = NewFromDir(nil, "migrations")
	require.Error(t, err)
}
