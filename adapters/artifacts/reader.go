package artifacts

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"pkemu/adapters/samples"
	"pkemu/domain/cosmology"
	"pkemu/domain/run"
	"pkemu/internal/errors"
)

// ReadCosmologies loads cosmologies written by SaveCosmologies. The format
// follows the extension: .json reads the list, .csv and .xlsx read the table.
func ReadCosmologies(ctx context.Context, path string) ([]cosmology.Cosmology, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var out []cosmology.Cosmology
		if err := readJSON(path, &out); err != nil {
			return nil, err
		}
		if out == nil {
			out = []cosmology.Cosmology{}
		}
		return out, nil
	}

	rows, err := samples.ReadTable(ctx, path)
	if err != nil {
		return nil, err
	}
	// A table of zero cosmologies has only the index header cell, which
	// readers see as no rows at all.
	if len(rows) == 0 {
		return []cosmology.Cosmology{}, nil
	}
	header := rows[0]
	if len(header) == 0 {
		header = []string{""}
	}
	names := header[1:]
	if len(names) == 0 && len(rows) > 1 {
		return nil, tableError(path, "header has no parameter columns")
	}

	out := make([]cosmology.Cosmology, 0, len(rows)-1)
	for i, raw := range rows[1:] {
		if len(raw) != len(names)+1 {
			return nil, tableError(path, "row %d has %d cells, header has %d", i, len(raw), len(names)+1)
		}
		values := make([]float64, len(names))
		for j, cell := range raw[1:] {
			v, err := samples.ParseCell(cell)
			if err != nil {
				return nil, errors.InvalidInputf(err, "%s row %d column %s", path, i, names[j])
			}
			values[j] = v
		}
		c, err := cosmology.NewCosmology(names, values)
		if err != nil {
			return nil, errors.InvalidInputf(err, "%s row %d", path, i)
		}
		out = append(out, c)
	}
	return out, nil
}

// ReadSpectra loads the JSON list written by SaveSpectra
func ReadSpectra(path string) ([]cosmology.Spectrum, error) {
	var out []cosmology.Spectrum
	if err := readJSON(path, &out); err != nil {
		return nil, err
	}
	for i, sp := range out {
		if err := sp.Validate(); err != nil {
			return nil, errors.InvalidInputf(err, "%s spectrum %d", path, i)
		}
	}
	return out, nil
}

// ReadManifest loads run_manifest.json from dir
func ReadManifest(dir string) (*run.Manifest, error) {
	var m run.Manifest
	if err := readJSON(filepath.Join(dir, ManifestFile), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.IOError(path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.InvalidInputf(err, "failed to decode %s", path)
	}
	return nil
}
