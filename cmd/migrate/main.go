package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/letrinh/letrinh-backend/pkg/config"
	"github.com/letrinh/letrinh-backend/pkg/db"
	"github.com/letrinh/letrinh-backend/pkg/logger"
	"github.com/letrinh/letrinh-backend/pkg/migrate"
)

type options struct {
	cmd      string
	dir      string
	embedded bool
	name     string
	noTx     bool
	version  string
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.BoolVar(&opts.embedded, "embedded", false, "use the migrations compiled into the binary instead of -dir")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.BoolVar(&opts.noTx, "no-tx", false, "mark the created migration as NO TRANSACTION")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	_ = godotenv.Load()

	// create and validate only touch files, so they run without config.
	if err := runOffline(opts); !errors.Is(err, errNeedsDatabase) {
		exitOn(err)
		return
	}

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Version:     cfg.Telemetry.ServiceVersion,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"cmd":      opts.cmd,
		"dir":      opts.dir,
		"embedded": opts.embedded,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to connect database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "failed to unwrap sql database", err)
		os.Exit(1)
	}

	logg.Info(ctx, "migrate ready")
	if err := runOnline(ctx, sqlDB, opts); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
}

var errNeedsDatabase = errors.New("command needs a database")

func runOffline(opts options) error {
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return fmt.Errorf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(migrate.CreateOptions{Dir: opts.dir, Name: opts.name, NoTransaction: opts.noTx})
		if err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		validate := func() error { return migrate.ValidateDir(opts.dir) }
		if opts.embedded {
			validate = migrate.ValidateEmbedded
		}
		if err := validate(); err != nil {
			return fmt.Errorf("migration validation failed: %w", err)
		}
		fmt.Println("migration validation passed")
		return nil
	}
	return errNeedsDatabase
}

func runOnline(ctx context.Context, sqlDB *sql.DB, opts options) error {
	var (
		migrator *migrate.Migrator
		err      error
	)
	if opts.embedded {
		migrator, err = migrate.NewEmbedded(sqlDB)
	} else {
		migrator, err = migrate.NewFromDir(sqlDB, opts.dir)
	}
	if err != nil {
		return err
	}

	switch opts.cmd {
	case "up":
		applied, err := migrator.Up(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("applied %d migration(s)\n", applied)
		return nil
	case "down":
		return migrator.Down(ctx)
	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		for _, st := range statuses {
			applied := "pending"
			if !st.AppliedAt.IsZero() {
				applied = st.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Printf("%-16d %-8s %s\n", st.Source.Version, st.State, applied)
		}
		return nil
	case "version":
		if opts.version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		target, err := migrate.ParseVersion(opts.version)
		if err != nil {
			return err
		}
		return migrator.MigrateTo(ctx, target)
	default:
		return fmt.Errorf("unknown -cmd value: %s", opts.cmd)
	}
}

func exitOn(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
