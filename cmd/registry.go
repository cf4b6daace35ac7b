package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/servicearea/internal/config"
	"github.com/sells-group/servicearea/internal/registry"
	"github.com/sells-group/servicearea/internal/server"
)

var registryShowKeys bool

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect and validate the street registry",
}

var registryInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print build stats and serviced streets",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, stats, err := loadRegistry(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printStats(cmd, stats)

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STREET\tSERVICE ENTITY\tRANGE")
		for _, seg := range server.StreetList(reg) {
			rng := "-"
			if seg.Start != nil {
				rng = fmt.Sprintf("%d-%d", *seg.Start, *seg.End)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", seg.Street, seg.ServiceEntity, rng)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		if registryShowKeys {
			fmt.Fprintln(out)
			for e := range reg.Entries() {
				fmt.Fprintf(out, "%-10s %s -> %s\n", e.Variant, e.Key, e.Street.DisplayName())
			}
		}
		return nil
	},
}

var registryValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the registry and fail when it has no usable rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, stats, err := loadRegistry(cmd)
		if err != nil {
			return err
		}
		printStats(cmd, stats)
		fmt.Fprintln(cmd.OutOrStdout(), "registry OK")
		return nil
	},
}

func loadRegistry(cmd *cobra.Command) (*registry.Registry, registry.BuildStats, error) {
	if err := cfg.Validate(config.ModeRegistry); err != nil {
		return nil, registry.BuildStats{}, err
	}
	buildOpts, err := buildOptions(cfg.Match)
	if err != nil {
		return nil, registry.BuildStats{}, err
	}
	return registry.FromSource(cmd.Context(), cfg.Registry.Source, loadOptions(cfg), buildOpts...)
}

func printStats(cmd *cobra.Command, s registry.BuildStats) {
	fmt.Fprintf(cmd.OutOrStdout(),
		"rows=%d indexed=%d skipped=%d streets=%d keys=%d collisions=%d\n",
		s.Rows, s.Indexed, s.Skipped, s.Streets, s.Keys, s.Collisions)
}

func init() {
	registryInspectCmd.Flags().BoolVar(&registryShowKeys, "keys", false, "also list every indexed key")
	registryCmd.AddCommand(registryInspectCmd, registryValidateCmd)
	rootCmd.AddCommand(registryCmd)
}
