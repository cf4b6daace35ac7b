package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/servicearea/internal/config"
	"github.com/sells-group/servicearea/internal/lookup"
	"github.com/sells-group/servicearea/internal/policy"
)

var (
	checkStreet string
	checkCity   string
	checkState  string
	checkHouse  int
	checkOutput string
)

var checkCmd = &cobra.Command{
	Use:   "check [address]",
	Short: "Look up one address",
	Long: `Geocodes a free-text address and reports whether it is serviced.

With --street the address components are taken from flags and geocoding is skipped;
--city and --state default to the configured locality.

Examples:
  servicearea check "2300 Kemp Blvd, Wichita Falls, TX"
  servicearea check --street "Kemp Blvd" --house 2300 --output yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateOutput(checkOutput); err != nil {
			return err
		}
		if checkStreet == "" && len(args) == 0 {
			return eris.New("check: an address argument or --street is required")
		}

		ctx := cmd.Context()
		env, err := initLookup(ctx, cfg, config.ModeCheck, checkStreet == "")
		if err != nil {
			return err
		}
		defer env.Close()

		var resp lookup.Response
		if checkStreet != "" {
			resp = env.Service.Match(checkInput(cfg, cmd.Flags().Changed("house")))
		} else {
			resp = env.Service.Check(ctx, args[0])
		}
		return writeResponse(cmd.OutOrStdout(), resp, checkOutput)
	},
}

func checkInput(c *config.Config, withHouse bool) policy.Input {
	in := policy.Input{Street: checkStreet, City: checkCity, State: checkState}
	if in.City == "" {
		in.City = c.Locality.City
	}
	if in.State == "" {
		in.State = c.Locality.State
	}
	if withHouse {
		house := checkHouse
		in.HouseNumber = &house
	}
	return in
}

func validateOutput(format string) error {
	switch strings.ToLower(format) {
	case "json", "yaml":
		return nil
	default:
		return eris.Errorf("unsupported output format %q (want json or yaml)", format)
	}
}

// writeResponse renders resp as indented JSON or YAML.
func writeResponse(w io.Writer, resp lookup.Response, format string) error {
	if strings.EqualFold(format, "yaml") {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(resp), "encode json")
}

func init() {
	checkCmd.Flags().StringVar(&checkStreet, "street", "", "street name; skips geocoding")
	checkCmd.Flags().StringVar(&checkCity, "city", "", "city (default from config locality)")
	checkCmd.Flags().StringVar(&checkState, "state", "", "state (default from config locality)")
	checkCmd.Flags().IntVar(&checkHouse, "house", 0, "house number")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "json", "output format: json or yaml")
	rootCmd.AddCommand(checkCmd)
}
