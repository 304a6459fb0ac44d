// Package samples reads unit Latin hypercube samples from CSV or XLSX files
// laid out with a leading row-index column.
package samples

import (
	"context"
	"math"

	"pkemu/domain/core"
	"pkemu/domain/cosmology"
	"pkemu/internal"
	"pkemu/internal/errors"
)

// Reader implements ports.SampleReader
type Reader struct {
	logger *internal.Logger
}

// NewReader creates a sample reader
func NewReader(logger *internal.Logger) *Reader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Reader{logger: logger.With("samples")}
}

// ReadSamples loads the unit sample matrix at path. The first column is a row
// index and is dropped; the remaining header cells name the columns. Every
// value must be a number in [0, 1].
func (r *Reader) ReadSamples(ctx context.Context, path string) (*cosmology.UnitSampleMatrix, error) {
	rows, err := ReadTable(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.InvalidInputf(core.ErrEmptyHeader, "%s has no header row", path)
	}

	header := rows[0]
	if len(header) < 2 {
		return nil, errors.InvalidInputf(core.ErrEmptyHeader, "%s header needs an index column and at least one parameter", path)
	}
	matrix := &cosmology.UnitSampleMatrix{
		Columns: append([]string(nil), header[1:]...),
		Rows:    make([][]float64, 0, len(rows)-1),
	}
	width := len(matrix.Columns)

	for i, raw := range rows[1:] {
		if isBlank(raw) {
			continue
		}
		if len(raw) != width+1 {
			return nil, errors.InvalidInputf(core.ErrColumnMismatch,
				"%s row %d has %d cells, header has %d", path, i, len(raw), width+1)
		}
		values := make([]float64, width)
		for j, cell := range raw[1:] {
			v, err := ParseCell(cell)
			if err != nil {
				return nil, errors.InvalidInputf(err, "%s row %d column %s", path, i, matrix.Columns[j])
			}
			if math.IsNaN(v) || v < 0 || v > 1 {
				return nil, errors.InvalidInputf(core.NewSampleRangeError(i, matrix.Columns[j], v), "%s", path)
			}
			values[j] = v
		}
		matrix.Rows = append(matrix.Rows, values)
	}

	r.logger.Info("read %d samples x %d columns from %s", matrix.Len(), width, path)
	return matrix, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
