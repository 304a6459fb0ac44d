// Package artifacts writes and reads the files a pipeline run produces.
package artifacts

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"pkemu/adapters/samples"
	"pkemu/domain/core"
	"pkemu/domain/cosmology"
	"pkemu/domain/run"
	"pkemu/internal"
	"pkemu/internal/errors"
)

// Fixed artifact base names under the data directory
const (
	CosmologiesName = "cosmologies"
	SpectraName     = "pk_linear"
	ManifestFile    = "run_manifest.json"
	ReportName      = "run_report"
)

// Store implements ports.ArtifactStore on a local directory
type Store struct {
	dir    string
	format string
	logger *internal.Logger
}

// NewStore creates a store writing tables as format ("csv" or "xlsx") under dir
func NewStore(dir, format string, logger *internal.Logger) *Store {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if format != "xlsx" {
		format = "csv"
	}
	return &Store{dir: dir, format: format, logger: logger.With("artifacts")}
}

// Dir returns the output directory
func (s *Store) Dir() string {
	return s.dir
}

// tablePath resolves name under the store directory. Names with an extension
// keep it; bare names get the store's table format.
func (s *Store) tablePath(name string) string {
	if filepath.Ext(name) == "" {
		name += "." + s.format
	}
	if filepath.IsAbs(name) || strings.ContainsRune(name, os.PathSeparator) {
		return name
	}
	return filepath.Join(s.dir, name)
}

func (s *Store) jsonPath(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// SaveSamples writes a unit sample matrix in the layout ReadSamples expects
func (s *Store) SaveSamples(ctx context.Context, name string, m *cosmology.UnitSampleMatrix) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Interrupted(err)
	}
	header := append([]string{""}, m.Columns...)
	path := s.tablePath(name)
	if err := writeTable(path, header, m.Rows); err != nil {
		return nil, err
	}
	s.logger.Info("wrote %d samples to %s", m.Len(), path)
	return []string{path}, nil
}

// SaveCosmologies writes the scaled cosmologies as a table and a JSON list.
// All cosmologies must share the same parameter names in the same order.
func (s *Store) SaveCosmologies(ctx context.Context, cosmologies []cosmology.Cosmology) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Interrupted(err)
	}

	if cosmologies == nil {
		cosmologies = []cosmology.Cosmology{}
	}
	header := []string{""}
	rows := make([][]float64, len(cosmologies))
	if len(cosmologies) > 0 {
		names := cosmologies[0].Names()
		header = append(header, names...)
		for i, c := range cosmologies {
			if !slices.Equal(c.Names(), names) {
				return nil, errors.InvalidInputf(core.ErrColumnMismatch, "cosmology %d has parameters %v, expected %v", i, c.Names(), names)
			}
			rows[i] = c.Values()
		}
	}

	table := s.tablePath(CosmologiesName)
	if err := writeTable(table, header, rows); err != nil {
		return nil, err
	}
	list := s.jsonPath(CosmologiesName)
	if err := writeJSON(list, cosmologies); err != nil {
		return nil, err
	}

	s.logger.Info("wrote %d cosmologies to %s and %s", len(cosmologies), table, list)
	return []string{table, list}, nil
}

// SaveSpectra writes the spectra as a table with the wavenumbers as header,
// and as a JSON list. All spectra must share one k grid.
func (s *Store) SaveSpectra(ctx context.Context, spectra []cosmology.Spectrum) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Interrupted(err)
	}

	if spectra == nil {
		spectra = []cosmology.Spectrum{}
	}
	header := []string{""}
	rows := make([][]float64, len(spectra))
	if len(spectra) > 0 {
		k := spectra[0].K
		for _, v := range k {
			header = append(header, samples.FormatCell(v))
		}
		for i, sp := range spectra {
			if !slices.Equal(sp.K, k) {
				return nil, errors.InvalidInputf(core.ErrLengthMismatch, "spectrum %d uses a different k grid", i)
			}
			if len(sp.P) != len(k) {
				return nil, errors.InvalidInputf(core.ErrLengthMismatch, "spectrum %d has %d values for %d wavenumbers", i, len(sp.P), len(k))
			}
			rows[i] = sp.P
		}
	}

	table := s.tablePath(SpectraName)
	if err := writeTable(table, header, rows); err != nil {
		return nil, err
	}
	list := s.jsonPath(SpectraName)
	if err := writeJSON(list, spectra); err != nil {
		return nil, err
	}

	s.logger.Info("wrote %d spectra to %s and %s", len(spectra), table, list)
	return []string{table, list}, nil
}

// SaveManifest writes run_manifest.json plus a Markdown and HTML report
func (s *Store) SaveManifest(ctx context.Context, manifest *run.Manifest) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Interrupted(err)
	}
	if err := manifest.Validate(); err != nil {
		return nil, errors.Wrap(err, "refusing to write invalid manifest")
	}

	path := filepath.Join(s.dir, ManifestFile)
	if err := writeJSON(path, manifest); err != nil {
		return nil, err
	}

	md := RenderReport(manifest)
	mdPath := filepath.Join(s.dir, ReportName+".md")
	if err := writeFile(mdPath, md); err != nil {
		return nil, err
	}
	htmlPath := filepath.Join(s.dir, ReportName+".html")
	if err := writeFile(htmlPath, ReportHTML(md)); err != nil {
		return nil, err
	}

	s.logger.Info("wrote manifest for run %s to %s", manifest.RunID, path)
	return []string{path, mdPath, htmlPath}, nil
}

func writeTable(path string, header []string, rows [][]float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.IOError(path, err)
	}
	if samples.Format(path) == "xlsx" {
		return writeXLSX(path, header, rows)
	}
	return writeCSV(path, header, rows)
}

func writeCSV(path string, header []string, rows [][]float64) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.IOError(path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return errors.IOError(path, err)
	}
	record := make([]string, 0, len(header))
	for i, row := range rows {
		record = append(record[:0], strconv.Itoa(i))
		for _, v := range row {
			record = append(record, samples.FormatCell(v))
		}
		if err := w.Write(record); err != nil {
			return errors.IOError(path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.IOError(path, err)
	}
	return file.Close()
}

func writeXLSX(path string, header []string, rows [][]float64) error {
	f := excelize.NewFile()
	defer f.Close()

	headerCells := make([]interface{}, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	if err := f.SetSheetRow(samples.SheetName, "A1", &headerCells); err != nil {
		return errors.IOError(path, err)
	}

	for i, row := range rows {
		cells := make([]interface{}, 0, len(row)+1)
		cells = append(cells, i)
		for _, v := range row {
			cells = append(cells, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.IOError(path, err)
		}
		if err := f.SetSheetRow(samples.SheetName, cell, &cells); err != nil {
			return errors.IOError(path, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.IOError(path, err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", filepath.Base(path))
	}
	return writeFile(path, append(data, '\n'))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.IOError(path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.IOError(path, err)
	}
	return nil
}

func tableError(path string, format string, args ...interface{}) error {
	return errors.InvalidInputf(core.ErrColumnMismatch, "%s: %s", path, fmt.Sprintf(format, args...))
}
