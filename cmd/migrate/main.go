// migrate applies the SQL files under migrations/ to the configured database.
//
//	migrate                        # up
//	migrate --direction down
//	migrate --direction to --version 1
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"flyerxpress/internal/config"
	"flyerxpress/internal/database/migrations"
	"flyerxpress/internal/logger"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/pflag"
)

type options struct {
	direction string
	version   uint
	force     int
	dir       string
}

var errUsage = errors.New("usage")

func main() {
	log := logger.NewLogger("migrate")
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Debug("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	opts, err := parseArgs(os.Args[1:], os.Stderr, cfg.Database.MigrationsDir)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal("MIGRATE", err.Error())
	}

	sqlDB, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	defer sqlDB.Close()
	if err := sqlDB.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}

	runner := migrations.NewRunner(sqlDB, migrations.Options{MigrationsDir: opts.dir}, log)
	defer func() {
		if err := runner.Close(); err != nil {
			log.Warn("MIGRATE", err.Error())
		}
	}()

	if err := apply(runner, opts); err != nil {
		log.Error("MIGRATE", err.Error())
		os.Exit(1)
	}
	log.Info("MIGRATE", fmt.Sprintf("Migration %s complete", opts.direction))
}

func parseArgs(args []string, out io.Writer, defaultDir string) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.StringVar(&opts.direction, "direction", "up", "up, down, to or force")
	flagSet.UintVar(&opts.version, "version", 0, "target version for --direction to")
	flagSet.IntVar(&opts.force, "force-version", -1, "version to mark clean for --direction force")
	flagSet.StringVar(&opts.dir, "dir", defaultDir, "directory holding the migration files")

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}

	switch opts.direction {
	case "up", "down":
	case "to":
		if !flagSet.Changed("version") {
			return options{}, fmt.Errorf("%w: --direction to needs --version", errUsage)
		}
	case "force":
		if opts.force < 0 {
			return options{}, fmt.Errorf("%w: --direction force needs --force-version", errUsage)
		}
	default:
		return options{}, fmt.Errorf("%w: unknown direction %q", errUsage, opts.direction)
	}
	return opts, nil
}

type migrator interface {
	Up() error
	Down() error
	To(version uint) error
	Force(version int) error
}

func apply(m migrator, opts options) error {
	switch opts.direction {
	case "down":
		return m.Down()
	case "to":
		return m.To(opts.version)
	case "force":
		return m.Force(opts.force)
	default:
		return m.Up()
	}
}
