package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"hivefeed/feeds"
	"hivefeed/rshares"
	"hivefeed/server"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the feed HTTP API",
		Description: `Starts the HTTP server exposing the ranked feed strategies, the
author comment listing and the manual aggregation trigger.

With --aggregate-interval set, a background scheduler periodically
recomputes the vote aggregates for every block range committed since
the last run, so the hot/trending inputs stay current without a
separate process.`,
		Flags: append(databaseFlags(),
			&cli.StringFlag{
				Name:    "hostname",
				Usage:   "The hostname to bind the server to (empty binds all interfaces)",
				EnvVars: []string{"HIVEFEED_HOSTNAME"},
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "HTTP port",
				EnvVars: []string{"HIVEFEED_PORT"},
			},
			&cli.DurationFlag{
				Name:    "aggregate-interval",
				Usage:   "How often the aggregation follower catches up to head (0 disables it)",
				EnvVars: []string{"HIVEFEED_AGGREGATE_INTERVAL"},
			},
		),
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			if ctx.IsSet("hostname") {
				cfg.Server.Hostname = ctx.String("hostname")
			}
			if ctx.IsSet("port") {
				cfg.Server.Port = ctx.Int("port")
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := feeds.NewEngine(store)
			maintainer := rshares.NewMaintainer(store)

			app := server.Server(&server.ServerConfig{
				Engine:     engine,
				Maintainer: maintainer,
			})

			scheduler := cron.New()
			if interval := ctx.Duration("aggregate-interval"); interval > 0 {
				_, err := scheduler.AddFunc("@every "+interval.String(), func() {
					if _, err := maintainer.FollowHead(context.Background()); err != nil {
						log.WithFields(log.Fields{
							"error": err,
						}).Error("Aggregation follower failed")
					}
				})
				if err != nil {
					return fmt.Errorf("schedule aggregation follower: %w", err)
				}
				scheduler.Start()
				log.WithFields(log.Fields{
					"interval": interval,
				}).Info("Aggregation follower scheduled")
			}

			// Graceful shutdown
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt)

			go func() {
				log.WithFields(log.Fields{
					"hostname": cfg.Server.Hostname,
					"port":     cfg.Server.Port,
				}).Info("Starting server")
				if err := app.Listen(fmt.Sprintf("%s:%d", cfg.Server.Hostname, cfg.Server.Port)); err != nil {
					log.Panic(err)
				}
			}()

			<-quit
			log.Info("Gracefully shutting down...")
			scheduler.Stop()
			if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
				return err
			}

			log.Info("Done!")
			return nil
		},
	}
}
