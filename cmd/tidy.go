package cmd

import (
	"time"

	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Prune old rows from the block log",
		Description: `Removes block log rows older than the retention window so the
hive_blocks table does not grow without bound. Only the block log is
pruned; posts and votes are kept in full because the aggregation
maintainer recomputes from complete vote history.

Can be run as a cron job to keep the database size down.`,
		Flags: append(databaseFlags(),
			&cli.DurationFlag{
				Name:    "retention",
				Value:   90 * 24 * time.Hour,
				Usage:   "How far back, relative to head time, to keep block rows",
				EnvVars: []string{"HIVEFEED_RETENTION"},
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

			_, err = store.TidyBlocks(ctx.Context, ctx.Duration("retention"))
			return err
		},
	}
}
