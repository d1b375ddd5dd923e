// Package main runs the PostgreSQL schema migrations
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/tablewise/server/internal/infrastructure/config"
	"github.com/tablewise/server/internal/infrastructure/persistence/migrations"
	"github.com/tablewise/server/internal/infrastructure/persistence/postgres"
	"github.com/tablewise/server/pkg/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("TABLEWISE_CONFIG"), "path to the config file")
	force := flag.Int("force", -1, "force the schema to this version before doing anything else")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] up|down|version\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	if err := run(*configPath, command, *force); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, command string, force int) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("migrations only apply to %s; sqlite creates its schema on open", config.DriverPostgres)
	}

	log, err := logger.New(logger.Config{Level: cfg.App.LogLevel, Format: cfg.App.LogFormat})
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := postgres.Open(context.Background(), cfg.Database, log.Logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	m, err := migrations.New(sqlDB, cfg.Database.Database, log.Logger)
	if err != nil {
		return err
	}
	defer m.Close()

	if force >= 0 {
		if err := m.Force(force); err != nil {
			return err
		}
	}

	switch command {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
