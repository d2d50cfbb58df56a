package cmd

import (
	"time"

	"hivefeed/rshares"

	"github.com/cenkalti/backoff/v4"
	"github.com/urfave/cli/v2"
)

func recomputeCmd() *cli.Command {
	return &cli.Command{
		Name:  "recompute",
		Usage: "Recompute vote aggregates for a block range",
		Description: `Recomputes rshares/abs_rshares for every post that received a vote
in the given block range. The run is atomic and idempotent, so it is
always safe to retry the same range after a failure; --retry does that
automatically with exponential backoff.`,
		Flags: append(databaseFlags(),
			&cli.Int64Flag{
				Name:     "first",
				Usage:    "First block of the range (inclusive)",
				Required: true,
			},
			&cli.Int64Flag{
				Name:     "last",
				Usage:    "Last block of the range (inclusive)",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "retry",
				Usage: "Retry the whole range with exponential backoff on transient failures",
			},
		),
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			maintainer := rshares.NewMaintainer(store)
			run := func() error {
				_, err := maintainer.Recompute(ctx.Context, ctx.Int64("first"), ctx.Int64("last"))
				return err
			}

			if !ctx.Bool("retry") {
				return run()
			}

			// Set up exponential backoff for whole-range retries
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = time.Second
			bo.MaxInterval = 30 * time.Second
			bo.MaxElapsedTime = 5 * time.Minute
			return backoff.Retry(run, backoff.WithContext(bo, ctx.Context))
		},
	}
}
