package cmd

import (
	"fmt"

	"hivefeed/config"
	"hivefeed/db"

	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "hivefeed",
		Usage: "Ranked content feeds over an ingested chain database",
		Description: `Serves ranked, tag-filtered content feeds with keyset pagination
		over the hive_posts table, and maintains the vote-weight aggregates
		(rshares/abs_rshares) the ranking depends on.

		The upstream ingestion pipeline owns posts, votes and blocks; this
		service only reads them, except for the aggregation maintainer which
		is the sole writer of the per-post vote aggregates.

		Flags can generally be set via environment variables, e.g.:

		--db-host => HIVEFEED_DB_HOST=localhost
		--port => HIVEFEED_PORT=8080
		`,
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			recomputeCmd(),
			tidyCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

// databaseFlags are shared by every command that touches the store.
func databaseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a TOML configuration file",
			EnvVars: []string{"HIVEFEED_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "db-driver",
			Usage:   "Database driver (postgres or sqlite)",
			EnvVars: []string{"HIVEFEED_DB_DRIVER"},
		},
		&cli.StringFlag{
			Name:    "db-host",
			Usage:   "PostgreSQL host",
			EnvVars: []string{"HIVEFEED_DB_HOST"},
		},
		&cli.IntFlag{
			Name:    "db-port",
			Usage:   "PostgreSQL port",
			EnvVars: []string{"HIVEFEED_DB_PORT"},
		},
		&cli.StringFlag{
			Name:    "db-user",
			Usage:   "PostgreSQL user",
			EnvVars: []string{"HIVEFEED_DB_USER"},
		},
		&cli.StringFlag{
			Name:    "db-password",
			Usage:   "PostgreSQL password",
			EnvVars: []string{"HIVEFEED_DB_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "db-name",
			Usage:   "PostgreSQL database name",
			EnvVars: []string{"HIVEFEED_DB_NAME"},
		},
		&cli.StringFlag{
			Name:    "db-path",
			Usage:   "SQLite database file (when --db-driver=sqlite)",
			EnvVars: []string{"HIVEFEED_DB_PATH"},
		},
	}
}

// loadConfig builds the effective configuration: TOML file first (when
// given), individual flags override.
func loadConfig(ctx *cli.Context) (*config.TomlConfig, error) {
	cfg, err := config.LoadConfig(ctx.String("config"))
	if err != nil {
		return nil, err
	}

	if ctx.IsSet("db-driver") {
		cfg.Database.Driver = ctx.String("db-driver")
	}
	if ctx.IsSet("db-host") {
		cfg.Database.Host = ctx.String("db-host")
	}
	if ctx.IsSet("db-port") {
		cfg.Database.Port = ctx.Int("db-port")
	}
	if ctx.IsSet("db-user") {
		cfg.Database.User = ctx.String("db-user")
	}
	if ctx.IsSet("db-password") {
		cfg.Database.Password = ctx.String("db-password")
	}
	if ctx.IsSet("db-name") {
		cfg.Database.Name = ctx.String("db-name")
	}
	if ctx.IsSet("db-path") {
		cfg.Database.Path = ctx.String("db-path")
	}

	return cfg, nil
}

func openStore(cfg *config.TomlConfig) (*db.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		return db.NewSQLite(cfg.Database.Path)
	case config.DriverPostgres:
		return db.NewPostgres(
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.Name,
		)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}
