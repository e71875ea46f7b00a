package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// timestampLayout is the goose version prefix of every migration file.
const timestampLayout = "20060102150405"

var nameSanitizeRe = regexp.MustCompile(`[^a-z0-9_]+`)

// CreateOptions controls the migration scaffold written by CreateSQLMigration.
type CreateOptions struct {
	Dir  string
	Name string
	// NoTransaction marks the file for statements Postgres refuses inside a
	// transaction, such as CREATE INDEX CONCURRENTLY.
	NoTransaction bool
	Now           func() time.Time
}

// CreateSQLMigration writes <dir>/<YYYYMMDDHHMMSS>_<name>.sql with empty
// goose Up and Down sections and returns its path.
func CreateSQLMigration(opts CreateOptions) (string, error) {
	if opts.Dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	safe := sanitizeName(opts.Name)
	if safe == "" {
		return "", fmt.Errorf("name %q results in empty sanitized filename", opts.Name)
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", opts.Dir, err)
	}
	fullpath := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.sql", now().UTC().Format(timestampLayout), safe))

	var b strings.Builder
	if opts.NoTransaction {
		b.WriteString("-- +goose NO TRANSACTION\n")
	}
	fmt.Fprintf(&b, "-- +goose Up\n-- %s\n\n-- +goose Down\n-- rollback %s\n", safe, safe)

	// O_EXCL keeps two runs in the same second from clobbering each other.
	f, err := os.OpenFile(fullpath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("migration already exists: %s", fullpath)
		}
		return "", fmt.Errorf("create migration %q: %w", fullpath, err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write migration %q: %w", fullpath, err)
	}
	return fullpath, f.Close()
}

func sanitizeName(name string) string {
	safe := strings.ToLower(strings.TrimSpace(name))
	safe = strings.ReplaceAll(safe, " ", "_")
	safe = nameSanitizeRe.ReplaceAllString(safe, "_")
	return strings.Trim(safe, "_")
}
