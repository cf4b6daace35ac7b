package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/servicearea/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the geocode cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired geocode cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.ModeCache); err != nil {
			return err
		}
		ctx := cmd.Context()

		cache, err := openCache(ctx, cfg)
		if err != nil {
			return err
		}
		defer cache.Close() //nolint:errcheck

		n, err := cache.Purge(ctx)
		if err != nil {
			return eris.Wrap(err, "cache purge")
		}
		zap.L().Info("geocode cache purged", zap.String("driver", cfg.Store.Driver), zap.Int64("deleted", n))
		fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired entries\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
