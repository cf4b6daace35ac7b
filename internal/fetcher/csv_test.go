package fetcher

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectRows(t *testing.T, rowCh <-chan Row, errCh <-chan error) ([]Row, error) {
	t.Helper()
	var rows []Row
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func fields(rows []Row) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = r.Fields
	}
	return out
}

func TestStreamCSV_Basic(t *testing.T) {
	input := "a,b,c\n1,2,3\n4,5,6\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, [][]string{{"a", "b", "c"}, {"1", "2", "3"}, {"4", "5", "6"}}, fields(rows))
	assert.Equal(t, 1, rows[0].Line)
	assert.Equal(t, 3, rows[2].Line)
}

func TestStreamCSV_WithHeader(t *testing.T) {
	input := "Street,RotaryClub\nKemp Blvd,Downtown\nMaplewood Ave,Sunrise\n"
	headerCh := make(chan []string, 1)

	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
	})

	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Kemp Blvd", "Downtown"}, rows[0].Fields)
	assert.Equal(t, 2, rows[0].Line)

	assert.Equal(t, []string{"Street", "RotaryClub"}, <-headerCh)
}

func TestStreamCSV_LineNumbersSkipBlankLines(t *testing.T) {
	input := "Street\n\nKemp Blvd\n\n\nTaft Blvd\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{HasHeader: true})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 3, rows[0].Line)
	assert.Equal(t, 6, rows[1].Line)
}

func TestStreamCSV_QuotedAndTrimmed(t *testing.T) {
	input := "\"Kemp Blvd, North\", Downtown \n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		TrimSpace: true,
	})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"Kemp Blvd, North", "Downtown"}, rows[0].Fields)
}

func TestStreamCSV_Comment(t *testing.T) {
	input := "# generated\na,b\n1,2\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		Comment: '#',
	})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, fields(rows))
}

func TestStreamCSV_Empty(t *testing.T) {
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(""), CSVOptions{})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStreamCSV_ReadError(t *testing.T) {
	r := io.MultiReader(strings.NewReader("a,b\n"), &errReader{err: io.ErrUnexpectedEOF})
	rowCh, errCh := StreamCSV(context.Background(), r, CSVOptions{})
	_, err := collectRows(t, rowCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv: read row")
}

func TestStreamCSV_ContextCancellation(t *testing.T) {
	var sb strings.Builder
	for range 10000 {
		sb.WriteString("a,b,c\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rowCh, errCh := StreamCSV(ctx, strings.NewReader(sb.String()), CSVOptions{})

	count := 0
	for range rowCh {
		count++
		if count >= 5 {
			cancel()
			break
		}
	}
	for range rowCh { //nolint:revive // drain
	}

	var gotErr error
	for err := range errCh {
		gotErr = err
	}
	if gotErr != nil {
		assert.Contains(t, gotErr.Error(), "context cancelled")
	}
}

type errReader struct{ err error }

func (r *errReader) Read([]byte) (int, error) { return 0, r.err }
