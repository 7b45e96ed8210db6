package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/config"
	"github.com/stemsi/eduadmin-backend/internal/logger"
)

var errUsage = errors.New("usage")

// migrator is the part of *migrate.Migrate the commands drive.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
}

// migrateLogger routes golang-migrate's progress lines into zerolog.
type migrateLogger struct {
	log zerolog.Logger
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.log.Debug().Msgf(format, v...)
}

func (l migrateLogger) Verbose() bool {
	return l.log.GetLevel() <= zerolog.DebugLevel
}

func main() {
	var migrationDir string
	flag.StringVar(&migrationDir, "path", "migrations", "Path to migration files")
	flag.Parse()

	cfg := config.Load()
	log := logger.Component(logger.Setup(cfg.LogLevel, cfg.LogFormat), "migrate")
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set")
	}

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		return
	}

	m, err := migrate.New("file://"+migrationDir, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("path", migrationDir).Msg("Migration failed to initialize")
	}
	m.Log = migrateLogger{log: log}

	err = run(m, args, log)
	if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
		log.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("Closing migrator failed")
	}
	if errors.Is(err, errUsage) {
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", args[0]).Msg("Migration failed")
	}
}

// run executes one command against m and logs the resulting schema version.
func run(m migrator, args []string, log zerolog.Logger) error {
	switch args[0] {
	case "up":
		if err := ignoreNoChange(m.Up()); err != nil {
			return fmt.Errorf("up: %w", err)
		}
	case "down":
		if err := ignoreNoChange(m.Down()); err != nil {
			return fmt.Errorf("down: %w", err)
		}
	case "steps":
		if len(args) < 2 {
			return fmt.Errorf("%w: steps requires a count argument, e.g. steps -1", errUsage)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: invalid step count %q", errUsage, args[1])
		}
		if err := ignoreNoChange(m.Steps(n)); err != nil {
			return fmt.Errorf("steps %d: %w", n, err)
		}
	case "version":
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("%w: force requires a version argument", errUsage)
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: invalid version %q", errUsage, args[1])
		}
		if err := m.Force(v); err != nil {
			return fmt.Errorf("force %d: %w", v, err)
		}
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	return logVersion(m, args[0], log)
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func logVersion(m migrator, command string, log zerolog.Logger) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Info().Str("command", command).Msg("No migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("version: %w", err)
	}
	event := log.Info()
	if dirty {
		event = log.Warn()
	}
	event.Str("command", command).Uint("version", version).Bool("dirty", dirty).Msg("Schema version")
	return nil
}

func printUsage() {
	fmt.Println("Usage: migrate [flags] <command>")
	fmt.Println("Commands: up, down, steps <n>, version, force <version>")
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
