package registry

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/servicearea/internal/address"
	"github.com/sells-group/servicearea/internal/fetcher"
)

// Feed formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Columns names the feed header cells. Matching ignores case and surrounding space.
type Columns struct {
	Street string
	Entity string
	Start  string
	End    string
}

// DefaultColumns returns the column names of the rotary street sheet.
func DefaultColumns() Columns {
	return Columns{
		Street: "Street",
		Entity: "RotaryClub",
		Start:  "start_address",
		End:    "end_address",
	}
}

// LoadOptions configures Load.
type LoadOptions struct {
	Format  string // csv or xlsx; empty detects from the source extension
	Columns Columns
	Fetch   fetcher.Options
}

// DetectFormat picks the feed format from src's extension.
func DetectFormat(src string) string {
	p := strings.SplitN(src, "?", 2)[0]
	switch strings.ToLower(filepath.Ext(p)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// Load reads the feed at src, a local path or an http(s)/ftp URL, into rows.
// The header row is required; rows too short for the street column come back
// empty and are skipped by Build.
func Load(ctx context.Context, src string, opts LoadOptions) ([]Row, error) {
	format, err := opts.format(src)
	if err != nil {
		return nil, err
	}

	var raw []fetcher.Row
	var header []string
	switch format {
	case FormatCSV:
		var rc io.ReadCloser
		rc, err = fetcher.Open(ctx, src, opts.Fetch)
		if err != nil {
			return nil, eris.Wrapf(err, "registry: load %s", src)
		}
		defer rc.Close() //nolint:errcheck
		raw, header, err = readCSV(ctx, rc)
	case FormatXLSX:
		path, cleanup, lerr := fetcher.Localize(ctx, src, opts.Fetch)
		if lerr != nil {
			return nil, eris.Wrapf(lerr, "registry: load %s", src)
		}
		defer cleanup()
		raw, header, err = readXLSX(ctx, path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "registry: load %s", src)
	}

	rows, err := toRows(raw, header, opts.columns())
	if err != nil {
		return nil, eris.Wrapf(err, "registry: load %s", src)
	}

	zap.L().Info("registry: feed loaded",
		zap.String("source", src),
		zap.String("format", format),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

// LoadReader reads a feed from r. XLSX content is spooled to a temp file.
func LoadReader(ctx context.Context, r io.Reader, format string, cols Columns) ([]Row, error) {
	var raw []fetcher.Row
	var header []string
	var err error
	switch strings.ToLower(format) {
	case FormatCSV, "":
		raw, header, err = readCSV(ctx, r)
	case FormatXLSX:
		raw, header, err = spoolXLSX(ctx, r)
	default:
		return nil, eris.Errorf("registry: unsupported feed format %q", format)
	}
	if err != nil {
		return nil, eris.Wrap(err, "registry: read feed")
	}
	if cols == (Columns{}) {
		cols = DefaultColumns()
	}
	return toRows(raw, header, cols)
}

// FromSource loads src and builds a registry from it. A feed without a
// single usable row is an error.
func FromSource(ctx context.Context, src string, opts LoadOptions, buildOpts ...BuildOption) (*Registry, BuildStats, error) {
	rows, err := Load(ctx, src, opts)
	if err != nil {
		return nil, BuildStats{}, err
	}
	return build(src, rows, buildOpts)
}

func build(src string, rows []Row, buildOpts []BuildOption) (*Registry, BuildStats, error) {
	reg, stats := Build(rows, buildOpts...)
	zap.L().Info("registry: built",
		zap.Int("rows", stats.Rows),
		zap.Int("indexed", stats.Indexed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("streets", stats.Streets),
		zap.Int("keys", stats.Keys),
		zap.Int("collisions", stats.Collisions),
	)
	if stats.Indexed == 0 {
		return nil, stats, eris.Errorf("registry: %s has no usable rows", src)
	}
	return reg, stats, nil
}

func (o LoadOptions) format(src string) (string, error) {
	format := strings.ToLower(o.Format)
	if format == "" {
		format = DetectFormat(src)
	}
	if format != FormatCSV && format != FormatXLSX {
		return "", eris.Errorf("registry: unsupported feed format %q", o.Format)
	}
	return format, nil
}

func (o LoadOptions) columns() Columns {
	if o.Columns == (Columns{}) {
		return DefaultColumns()
	}
	return o.Columns
}

func readCSV(ctx context.Context, r io.Reader) ([]fetcher.Row, []string, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader:  true,
		HeaderCh:   headerCh,
		TrimSpace:  true,
		LazyQuotes: true,
	})
	return drain(rowCh, errCh, headerCh)
}

func readXLSX(ctx context.Context, path string) ([]fetcher.Row, []string, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamXLSX(ctx, path, fetcher.XLSXOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
	})
	return drain(rowCh, errCh, headerCh)
}

func spoolXLSX(ctx context.Context, r io.Reader) ([]fetcher.Row, []string, error) {
	f, err := os.CreateTemp("", "servicearea-feed-*.xlsx")
	if err != nil {
		return nil, nil, eris.Wrap(err, "create temp file")
	}
	defer os.Remove(f.Name()) //nolint:errcheck

	_, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "spool xlsx")
	}
	return readXLSX(ctx, f.Name())
}

func toRows(raw []fetcher.Row, header []string, cols Columns) ([]Row, error) {
	if header == nil {
		return nil, eris.New("feed is empty")
	}
	idx, err := resolveColumns(header, cols)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, idx.row(r))
	}
	return rows, nil
}

// drain collects every row, then the header. The header is sent before any
// row on a buffered channel, so it is ready once the rows are drained.
func drain(rowCh <-chan fetcher.Row, errCh <-chan error, headerCh <-chan []string) ([]fetcher.Row, []string, error) {
	var rows []fetcher.Row
	for r := range rowCh {
		rows = append(rows, r)
	}
	for err := range errCh {
		if err != nil {
			return nil, nil, err
		}
	}
	select {
	case h := <-headerCh:
		return rows, h, nil
	default:
		return rows, nil, nil
	}
}

type columnIndex struct {
	street, entity, start, end int
}

func resolveColumns(header []string, cols Columns) (columnIndex, error) {
	find := func(name string) int {
		if name == "" {
			return -1
		}
		for i, h := range header {
			h = strings.TrimPrefix(h, "\ufeff")
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(name)) {
				return i
			}
		}
		return -1
	}

	idx := columnIndex{
		street: find(cols.Street),
		entity: find(cols.Entity),
		start:  find(cols.Start),
		end:    find(cols.End),
	}
	if idx.street < 0 {
		return idx, eris.Errorf("missing street column %q", cols.Street)
	}
	if idx.entity < 0 {
		return idx, eris.Errorf("missing service entity column %q", cols.Entity)
	}
	return idx, nil
}

func (c columnIndex) row(r fetcher.Row) Row {
	cell := func(i int) string {
		if i < 0 || i >= len(r.Fields) {
			return ""
		}
		return strings.TrimSpace(r.Fields[i])
	}

	row := Row{
		Street:        cell(c.street),
		ServiceEntity: cell(c.entity),
		Line:          r.Line,
	}
	start, okStart := address.ParseBound(cell(c.start))
	end, okEnd := address.ParseBound(cell(c.end))
	if okStart && okEnd {
		hr := NewHouseRange(start, end)
		row.Range = &hr
	}
	return row
}
