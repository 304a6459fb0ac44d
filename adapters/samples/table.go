package samples

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"pkemu/internal/errors"
)

// SheetName is the worksheet read from and written to XLSX files
const SheetName = "Sheet1"

// Format returns "xlsx" for .xlsx files and "csv" otherwise
func Format(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return "xlsx"
	}
	return "csv"
}

// ReadTable reads every row of a CSV file or of Sheet1 of an XLSX file.
// Cells are trimmed.
func ReadTable(ctx context.Context, path string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Interrupted(err)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.IOError(path, err)
	}

	var (
		rows [][]string
		err  error
	)
	switch Format(path) {
	case "xlsx":
		rows, err = readXLSX(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		for j := range row {
			row[j] = strings.TrimSpace(row[j])
		}
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.InvalidInputf(err, "failed to parse CSV file %s", path)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.InvalidInputf(err, "failed to open Excel file %s", path)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.InvalidInputf(err, "failed to read %s of %s", SheetName, path)
	}
	return rows, nil
}

// ParseCell parses a numeric cell. Inf and NaN spellings accepted by
// strconv are allowed.
func ParseCell(cell string) (float64, error) {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", cell)
	}
	return v, nil
}

// FormatCell writes the shortest representation that parses back to v
func FormatCell(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
