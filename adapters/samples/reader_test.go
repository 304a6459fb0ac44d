package samples

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pkemu/domain/core"
	"pkemu/internal"
	"pkemu/internal/errors"
	"pkemu/internal/testkit"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadSamplesCSV(t *testing.T) {
	rows := [][]float64{{0.5, 0.5}, {0, 1}, {0.125, 0.875}}
	path, err := testkit.WriteSampleCSV(t.TempDir(), "lhs.csv", []string{"sigma8", "h"}, rows)
	require.NoError(t, err)

	m, err := NewReader(internal.Discard()).ReadSamples(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"sigma8", "h"}, m.Columns)
	assert.Equal(t, rows, m.Rows)
}

func TestReadSamplesHeaderOnly(t *testing.T) {
	path := writeFile(t, "empty.csv", ",sigma8,h\n")

	m, err := NewReader(internal.Discard()).ReadSamples(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, []string{"sigma8", "h"}, m.Columns)
}

func TestReadSamplesRejects(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		sentinel error
	}{
		{"empty file", "", core.ErrEmptyHeader},
		{"index only", "idx\n0\n", core.ErrEmptyHeader},
		{"above one", ",a\n0,1.5\n", core.ErrSampleOutOfRange},
		{"below zero", ",a\n0,-0.1\n", core.ErrSampleOutOfRange},
		{"nan", ",a\n0,NaN\n", core.ErrSampleOutOfRange},
		{"short row", ",a,b\n0,0.5\n", core.ErrColumnMismatch},
	}

	reader := NewReader(internal.Discard())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, "bad.csv", tc.content)
			_, err := reader.ReadSamples(context.Background(), path)
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
			assert.ErrorIs(t, err, tc.sentinel)
		})
	}
}

func TestReadSamplesNotANumber(t *testing.T) {
	path := writeFile(t, "bad.csv", ",a\n0,abc\n")
	_, err := NewReader(internal.Discard()).ReadSamples(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestReadSamplesMissingFile(t *testing.T) {
	_, err := NewReader(internal.Discard()).ReadSamples(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeIOError, errors.GetCode(err))
}

func TestReadSamplesXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow(SheetName, "A1", &[]interface{}{"", "sigma8", "h"}))
	require.NoError(t, f.SetSheetRow(SheetName, "A2", &[]interface{}{0, 0.25, 0.75}))
	require.NoError(t, f.SetSheetRow(SheetName, "A3", &[]interface{}{1, 1, 0}))

	path := filepath.Join(t.TempDir(), "lhs.xlsx")
	require.NoError(t, f.SaveAs(path))

	m, err := NewReader(internal.Discard()).ReadSamples(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"sigma8", "h"}, m.Columns)
	assert.Equal(t, [][]float64{{0.25, 0.75}, {1, 0}}, m.Rows)
}

func TestFormatCellRoundTrip(t *testing.T) {
	for _, v := range []float64{0.1, 1.0 / 3, 2.5e-9, 0} {
		got, err := ParseCell(FormatCell(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}
