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
	"github.com/korenlms/portal/internal/config"
	"github.com/korenlms/portal/internal/logger"
	"github.com/rs/zerolog"
)

// migrateLogger adapts zerolog to migrate.Logger.
type migrateLogger struct {
	log     zerolog.Logger
	verbose bool
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.log.Info().Msgf(format, v...)
}

func (l migrateLogger) Verbose() bool { return l.verbose }

func main() {
	dir := flag.String("path", "migrations", "directory holding the exam_results migrations")
	verbose := flag.Bool("v", false, "log every applied migration")
	flag.Usage = usage
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, "pretty")

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set")
	}

	m, err := migrate.New("file://"+*dir, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("path", *dir).Msg("Cannot open migrations")
	}
	m.Log = migrateLogger{log: log, verbose: *verbose}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("Close failed")
		}
	}()

	if err := run(m, args); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Str("command", args[0]).Msg("Nothing to migrate")
			return
		}
		log.Error().Err(err).Str("command", args[0]).Msg("Migration failed")
		os.Exit(1)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info().Msg("Schema is empty")
	case err != nil:
		log.Error().Err(err).Msg("Cannot read schema version")
	default:
		log.Info().Uint("version", version).Bool("dirty", dirty).Str("command", args[0]).Msg("Done")
	}
}

func run(m *migrate.Migrate, args []string) error {
	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "steps":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "force":
		v, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Force(v)
	case "version":
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s needs a number", args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", args[0], err)
	}
	return n, nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: migrate [-path dir] [-v] <up|down|steps n|force v|version>")
	fmt.Fprintln(os.Stderr, "Manages the exam_results history schema.")
	flag.PrintDefaults()
}
