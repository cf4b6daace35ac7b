package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/servicearea/internal/config"
	"github.com/sells-group/servicearea/internal/fetcher"
	"github.com/sells-group/servicearea/internal/lookup"
)

var (
	batchOut    string
	batchColumn string
)

var batchCmd = &cobra.Command{
	Use:   "batch <in.csv>",
	Short: "Look up every address in a CSV file",
	Long: `Reads addresses from one column of a CSV file, looks them up concurrently
(batch.concurrency) and writes one result row per address, in input order.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		queries, err := readQueries(ctx, args[0], batchColumn)
		if err != nil {
			return err
		}
		zap.L().Info("batch input parsed", zap.Int("addresses", len(queries)))

		env, err := initLookup(ctx, cfg, config.ModeBatch, true)
		if err != nil {
			return err
		}
		defer env.Close()

		responses := env.Service.CheckAll(ctx, queries, cfg.Batch.Concurrency)

		out := cmd.OutOrStdout()
		if batchOut != "" {
			f, err := os.Create(batchOut)
			if err != nil {
				return eris.Wrap(err, "batch: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		if err := writeResults(out, queries, responses); err != nil {
			return err
		}

		serviced := 0
		for _, r := range responses {
			if r.Serviced {
				serviced++
			}
		}
		zap.L().Info("batch complete",
			zap.Int("addresses", len(responses)),
			zap.Int("serviced", serviced),
		)
		return nil
	},
}

// readQueries returns the non-empty values of column from the CSV at path.
func readQueries(ctx context.Context, path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "batch: open input")
	}
	defer f.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	idx := -1
	var queries []string
	for row := range rowCh {
		if idx < 0 {
			if idx, err = columnIndex(<-headerCh, column); err != nil {
				return nil, err
			}
		}
		if idx < len(row.Fields) && row.Fields[idx] != "" {
			queries = append(queries, row.Fields[idx])
		}
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "batch: read input")
	}
	return queries, nil
}

func columnIndex(header []string, column string) (int, error) {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), column) {
			return i, nil
		}
	}
	return -1, eris.Errorf("batch: column %q not found in header", column)
}

// resultRow is one line of batch output.
type resultRow struct {
	Address       string `csv:"address"`
	Serviced      bool   `csv:"serviced"`
	ServiceEntity string `csv:"service_entity"`
	MatchedStreet string `csv:"matched_street"`
	Score         int    `csv:"score"`
	Reason        string `csv:"reason"`
	Suggestions   string `csv:"suggestions"`
}

func writeResults(w io.Writer, queries []string, responses []lookup.Response) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(responses) == 0 {
		if err := enc.EncodeHeader(resultRow{}); err != nil {
			return eris.Wrap(err, "batch: write header")
		}
	}
	for i, r := range responses {
		names := make([]string, len(r.Suggestions))
		for j, s := range r.Suggestions {
			names[j] = s.Street
		}
		row := resultRow{
			Address:       queries[i],
			Serviced:      r.Serviced,
			ServiceEntity: r.ServiceEntity,
			MatchedStreet: r.MatchedStreet,
			Score:         r.ConfidenceScore,
			Reason:        r.Reason,
			Suggestions:   strings.Join(names, "; "),
		}
		if err := enc.Encode(row); err != nil {
			return eris.Wrap(err, "batch: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "batch: flush output")
}

func init() {
	batchCmd.Flags().StringVar(&batchOut, "out", "", "output CSV path (default stdout)")
	batchCmd.Flags().StringVar(&batchColumn, "column", "address", "input column holding the address")
	rootCmd.AddCommand(batchCmd)
}
