// Package testkit provides fixtures and in-memory adapters for tests.
package testkit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"pkemu/domain/core"
	"pkemu/domain/cosmology"
	"pkemu/ports"
)

// UniformParameters returns n parameters p1..pn, each uniform on [0, 1]
func UniformParameters(n int) []cosmology.Parameter {
	params := make([]cosmology.Parameter, n)
	for i := range params {
		params[i] = cosmology.Parameter{
			Name:  fmt.Sprintf("p%d", i+1),
			Prior: cosmology.PriorSpec{Distribution: "uniform", Specs: []float64{0, 1}},
		}
	}
	return params
}

// WriteSampleCSV writes rows under columns in the index-column layout and
// returns the file path.
func WriteSampleCSV(dir, name string, columns []string, rows [][]float64) (string, error) {
	var b strings.Builder
	b.WriteString("," + strings.Join(columns, ",") + "\n")
	for i, row := range rows {
		cells := make([]string, 0, len(row)+1)
		cells = append(cells, strconv.Itoa(i))
		for _, v := range row {
			cells = append(cells, strconv.FormatFloat(v, 'g', -1, 64))
		}
		b.WriteString(strings.Join(cells, ",") + "\n")
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// FakeEngine is a deterministic SpectrumEngine. The power at each k is the
// sum of the cosmology's values scaled by the k index, so every spectrum
// identifies the cosmology it came from.
type FakeEngine struct {
	K      []float64
	FailAt int // zero-based call index that fails; negative never fails

	mu    sync.Mutex
	calls []cosmology.Cosmology
}

// NewFakeEngine creates a fake engine on a three-point k grid that never fails
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{K: []float64{0.01, 0.1, 1}, FailAt: -1}
}

func (e *FakeEngine) Name() string { return "fake" }

func (e *FakeEngine) PkLinear(ctx context.Context, c cosmology.Cosmology, redshift float64) (cosmology.Spectrum, error) {
	e.mu.Lock()
	call := len(e.calls)
	e.calls = append(e.calls, c)
	e.mu.Unlock()

	if call == e.FailAt {
		return cosmology.Spectrum{}, fmt.Errorf("fake engine failure on call %d", call)
	}
	return FakeSpectrum(c, e.K, redshift), nil
}

// Calls returns the cosmologies passed to PkLinear in call order
func (e *FakeEngine) Calls() []cosmology.Cosmology {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]cosmology.Cosmology(nil), e.calls...)
}

// FakeSpectrum is the spectrum FakeEngine returns for c
func FakeSpectrum(c cosmology.Cosmology, k []float64, redshift float64) cosmology.Spectrum {
	var sum float64
	for _, v := range c.Values() {
		sum += v
	}
	pk := make([]float64, len(k))
	for i := range k {
		pk[i] = sum * float64(i+1) / (1 + redshift)
	}
	return cosmology.Spectrum{Redshift: redshift, K: append([]float64(nil), k...), P: pk}
}

// InMemoryRunRepository implements ports.RunRepository in memory
type InMemoryRunRepository struct {
	mu   sync.RWMutex
	runs map[core.RunID]*ports.RunRecord
}

func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{runs: make(map[core.RunID]*ports.RunRecord)}
}

func (r *InMemoryRunRepository) StartRun(ctx context.Context, record *ports.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[record.ID]; exists {
		return fmt.Errorf("run %s already exists", record.ID)
	}
	stored := *record
	stored.Status = ports.RunRunning
	r.runs[record.ID] = &stored
	return nil
}

func (r *InMemoryRunRepository) CompleteRun(ctx context.Context, id core.RunID, rows int, fingerprint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.runs[id]
	if !ok {
		return fmt.Errorf("run %s not found", id)
	}
	now := time.Now().UTC()
	rec.Status = ports.RunComplete
	rec.Rows = rows
	rec.Fingerprint = fingerprint
	rec.CompletedAt = &now
	return nil
}

func (r *InMemoryRunRepository) FailRun(ctx context.Context, id core.RunID, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.runs[id]
	if !ok {
		return fmt.Errorf("run %s not found", id)
	}
	now := time.Now().UTC()
	msg := cause.Error()
	rec.Status = ports.RunFailed
	rec.ErrorMessage = &msg
	rec.CompletedAt = &now
	return nil
}

// ListRuns returns the newest runs first
func (r *InMemoryRunRepository) ListRuns(ctx context.Context, limit int) ([]ports.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ports.RunRecord, 0, len(r.runs))
	for _, rec := range r.runs {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get returns a copy of the stored record
func (r *InMemoryRunRepository) Get(id core.RunID) (ports.RunRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.runs[id]
	if !ok {
		return ports.RunRecord{}, false
	}
	return *rec, true
}
