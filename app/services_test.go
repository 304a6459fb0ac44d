package app

import (
	"context"
	stderrors "errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pkemu/adapters/artifacts"
	"pkemu/adapters/samples"
	"pkemu/domain/core"
	"pkemu/domain/cosmology"
	"pkemu/internal"
	"pkemu/internal/errors"
	"pkemu/internal/priors"
	"pkemu/internal/testkit"
	"pkemu/ports"
)

// MockEngine is a testify mock of ports.SpectrumEngine
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) PkLinear(ctx context.Context, c cosmology.Cosmology, redshift float64) (cosmology.Spectrum, error) {
	args := m.Called(ctx, c, redshift)
	return args.Get(0).(cosmology.Spectrum), args.Error(1)
}

func (m *MockEngine) Name() string { return "mock" }

var testBounds = cosmology.EngineBounds{ZMin: 0, ZMax: 5, KMin: 0.01, KMax: 1, KPoints: 3}

func uniformSet(t *testing.T, n int) *priors.Set {
	t.Helper()
	set, err := priors.NewSet(testkit.UniformParameters(n))
	require.NoError(t, err)
	return set
}

func propagate() priors.Boundary {
	return priors.Boundary{Policy: priors.BoundaryPropagate, Epsilon: 1e-12}
}

func TestScaleSingleRowUniform(t *testing.T) {
	svc := NewScalingService(uniformSet(t, 2), propagate(), nil, internal.Discard())
	m := &cosmology.UnitSampleMatrix{Columns: []string{"p1", "p2"}, Rows: [][]float64{{0.5, 0.5}}}

	out, err := svc.Scale(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, map[string]float64{"p1": 0.5, "p2": 0.5}, out[0].Map())
}

func TestScaleZeroRows(t *testing.T) {
	svc := NewScalingService(uniformSet(t, 2), propagate(), nil, internal.Discard())
	out, err := svc.Scale(context.Background(), &cosmology.UnitSampleMatrix{Columns: []string{"p1", "p2"}})
	require.NoError(t, err)
	assert.Empty(t, out)

	engine := new(MockEngine)
	spectra, err := NewSpectrumService(engine, nil, internal.Discard()).Generate(context.Background(), out, 0)
	require.NoError(t, err)
	assert.Empty(t, spectra)
	engine.AssertNotCalled(t, "PkLinear", mock.Anything, mock.Anything, mock.Anything)
}

func TestScalePreservesOrderAndLocScale(t *testing.T) {
	params := []cosmology.Parameter{
		{Name: "sigma8", Prior: cosmology.PriorSpec{Distribution: "uniform", Specs: []float64{0.6, 0.4}}},
		{Name: "h", Prior: cosmology.PriorSpec{Distribution: "uniform", Specs: []float64{0.64, 0.18}}},
	}
	set, err := priors.NewSet(params)
	require.NoError(t, err)

	m := &cosmology.UnitSampleMatrix{
		Columns: []string{"sigma8", "h"},
		Rows:    [][]float64{{0, 1}, {1, 0}, {0.25, 0.5}},
	}
	out, err := NewScalingService(set, propagate(), nil, internal.Discard()).Scale(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, out, 3)

	want := [][]float64{{0.6, 0.82}, {1.0, 0.64}, {0.7, 0.73}}
	for i, c := range out {
		assert.Equal(t, []string{"sigma8", "h"}, c.Names())
		assert.InDeltaSlice(t, want[i], c.Values(), 1e-12, "row %d", i)
	}
}

func TestScaleBoundaryPolicy(t *testing.T) {
	params := []cosmology.Parameter{{Name: "x", Prior: cosmology.PriorSpec{Distribution: "norm", Specs: []float64{0, 1}}}}
	set, err := priors.NewSet(params)
	require.NoError(t, err)
	m := &cosmology.UnitSampleMatrix{Columns: []string{"x"}, Rows: [][]float64{{0}, {1}}}

	out, err := NewScalingService(set, propagate(), nil, internal.Discard()).Scale(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, math.IsInf(out[0].Values()[0], -1))
	assert.True(t, math.IsInf(out[1].Values()[0], 1))

	clamp := priors.Boundary{Policy: priors.BoundaryClamp, Epsilon: 1e-9}
	out, err = NewScalingService(set, clamp, nil, internal.Discard()).Scale(context.Background(), m)
	require.NoError(t, err)
	lo, hi := out[0].Values()[0], out[1].Values()[0]
	assert.False(t, math.IsInf(lo, 0))
	assert.False(t, math.IsInf(hi, 0))
	assert.InDelta(t, -hi, lo, 1e-6)
	assert.Greater(t, hi, 5.0)
}

func TestScaleColumnMismatch(t *testing.T) {
	svc := NewScalingService(uniformSet(t, 3), propagate(), nil, internal.Discard())
	_, err := svc.Scale(context.Background(), &cosmology.UnitSampleMatrix{Columns: []string{"a", "b"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrColumnMismatch)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestGenerateOrderAndAbort(t *testing.T) {
	ctx := context.Background()
	names := []string{"p1"}
	var cosmologies []cosmology.Cosmology
	for _, v := range []float64{0.1, 0.2, 0.3} {
		c, err := cosmology.NewCosmology(names, []float64{v})
		require.NoError(t, err)
		cosmologies = append(cosmologies, c)
	}
	k := []float64{0.1, 1}

	engine := new(MockEngine)
	for _, c := range cosmologies {
		engine.On("PkLinear", mock.Anything, c, 0.5).
			Return(testkit.FakeSpectrum(c, k, 0.5), nil).Once()
	}

	out, err := NewSpectrumService(engine, nil, internal.Discard()).Generate(ctx, cosmologies, 0.5)
	require.NoError(t, err)
	require.Len(t, out, len(cosmologies))
	for i, c := range cosmologies {
		assert.Equal(t, testkit.FakeSpectrum(c, k, 0.5), out[i])
	}
	engine.AssertExpectations(t)

	failing := new(MockEngine)
	failing.On("PkLinear", mock.Anything, cosmologies[0], 0.5).Return(testkit.FakeSpectrum(cosmologies[0], k, 0.5), nil).Once()
	failing.On("PkLinear", mock.Anything, cosmologies[1], 0.5).Return(cosmology.Spectrum{}, stderrors.New("engine down")).Once()

	out, err = NewSpectrumService(failing, nil, internal.Discard()).Generate(ctx, cosmologies, 0.5)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "row 1")
	failing.AssertNumberOfCalls(t, "PkLinear", 2)
}

func TestGenerateRejectsMalformedSpectrum(t *testing.T) {
	c, err := cosmology.NewCosmology([]string{"p1"}, []float64{1})
	require.NoError(t, err)

	engine := new(MockEngine)
	engine.On("PkLinear", mock.Anything, c, 0.0).
		Return(cosmology.Spectrum{K: []float64{1, 2}, P: []float64{1}}, nil)

	_, err = NewSpectrumService(engine, nil, internal.Discard()).Generate(context.Background(), []cosmology.Cosmology{c}, 0)
	assert.Error(t, err)
}

type pipelineFixture struct {
	dir     string
	engine  *testkit.FakeEngine
	runs    *testkit.InMemoryRunRepository
	service *PipelineService
}

func newPipeline(t *testing.T, n int) *pipelineFixture {
	t.Helper()
	dir := t.TempDir()
	logger := internal.Discard()
	params := testkit.UniformParameters(n)
	set, err := priors.NewSet(params)
	require.NoError(t, err)

	store := artifacts.NewStore(dir, "csv", logger)
	engine := testkit.NewFakeEngine()
	runs := testkit.NewInMemoryRunRepository()

	return &pipelineFixture{
		dir:    dir,
		engine: engine,
		runs:   runs,
		service: NewPipelineService(PipelineDeps{
			Reader:     samples.NewReader(logger),
			Scaling:    NewScalingService(set, propagate(), store, logger),
			Spectra:    NewSpectrumService(engine, store, logger),
			Store:      store,
			Runs:       runs,
			Loader:     artifacts.ReadCosmologies,
			Parameters: params,
			Boundary:   string(priors.BoundaryPropagate),
			Bounds:     testBounds,
			Logger:     logger,
		}),
	}
}

func TestPipelineGenerate(t *testing.T) {
	ctx := context.Background()
	fx := newPipeline(t, 2)
	rows := [][]float64{{0.1, 0.9}, {0.5, 0.5}, {0.75, 0.25}}
	input, err := testkit.WriteSampleCSV(fx.dir, "lhs_3.csv", []string{"p1", "p2"}, rows)
	require.NoError(t, err)

	res, err := fx.service.Generate(ctx, input, 0)
	require.NoError(t, err)

	require.Len(t, res.Cosmologies, len(rows))
	require.Len(t, res.Spectra, len(rows))
	for i, row := range rows {
		assert.Equal(t, row, res.Cosmologies[i].Values())
		assert.Equal(t, testkit.FakeSpectrum(res.Cosmologies[i], fx.engine.K, 0), res.Spectra[i])
	}
	assert.Equal(t, res.Cosmologies, fx.engine.Calls())

	saved, err := artifacts.ReadCosmologies(ctx, filepath.Join(fx.dir, "cosmologies.csv"))
	require.NoError(t, err)
	for i := range saved {
		assert.Equal(t, res.Cosmologies[i].Values(), saved[i].Values())
	}
	spectra, err := artifacts.ReadSpectra(filepath.Join(fx.dir, "pk_linear.json"))
	require.NoError(t, err)
	assert.Equal(t, res.Spectra, spectra)

	manifest, err := artifacts.ReadManifest(fx.dir)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, manifest.RunID)
	assert.Equal(t, 3, manifest.Rows)
	assert.Equal(t, 3, manifest.Spectra)
	assert.Equal(t, "fake", manifest.Fingerprint.Engine)
	require.Len(t, manifest.Summary, 2)
	assert.InDelta(t, 0.45, manifest.Summary[0].Mean, 1e-12)

	rec, ok := fx.runs.Get(res.RunID)
	require.True(t, ok)
	assert.Equal(t, ports.RunComplete, rec.Status)
	assert.Equal(t, 3, rec.Rows)
	assert.Equal(t, manifest.Fingerprint.Fingerprint.String(), rec.Fingerprint)
}

func TestPipelineGenerateIsReproducible(t *testing.T) {
	ctx := context.Background()
	fx := newPipeline(t, 2)
	input, err := testkit.WriteSampleCSV(fx.dir, "lhs.csv", []string{"p1", "p2"}, [][]float64{{0.3, 0.6}})
	require.NoError(t, err)

	a, err := fx.service.Generate(ctx, input, 1)
	require.NoError(t, err)
	b, err := fx.service.Generate(ctx, input, 1)
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Manifest.Fingerprint, b.Manifest.Fingerprint)
	assert.Equal(t, a.Spectra, b.Spectra)
}

func TestPipelineGenerateEngineFailure(t *testing.T) {
	ctx := context.Background()
	fx := newPipeline(t, 1)
	fx.engine.FailAt = 1
	input, err := testkit.WriteSampleCSV(fx.dir, "lhs.csv", []string{"p1"}, [][]float64{{0.1}, {0.2}, {0.3}})
	require.NoError(t, err)

	res, err := fx.service.Generate(ctx, input, 0)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Len(t, fx.engine.Calls(), 2)
	assert.NoFileExists(t, filepath.Join(fx.dir, "pk_linear.csv"))

	runs, err := fx.service.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ports.RunFailed, runs[0].Status)
	require.NotNil(t, runs[0].ErrorMessage)
	assert.Contains(t, *runs[0].ErrorMessage, "fake engine failure")
}

func TestPipelineScaleWithoutSave(t *testing.T) {
	ctx := context.Background()
	fx := newPipeline(t, 2)
	input, err := testkit.WriteSampleCSV(fx.dir, "lhs.csv", []string{"p1", "p2"}, [][]float64{{0.5, 0.5}})
	require.NoError(t, err)

	res, err := fx.service.Scale(ctx, input, false)
	require.NoError(t, err)
	require.Len(t, res.Cosmologies, 1)
	assert.Empty(t, res.Outputs)
	assert.Nil(t, res.Manifest)
	assert.NoFileExists(t, filepath.Join(fx.dir, "cosmologies.csv"))
	assert.Empty(t, fx.engine.Calls())
}

func TestPipelineScaleMissingInput(t *testing.T) {
	fx := newPipeline(t, 2)
	_, err := fx.service.Scale(context.Background(), filepath.Join(fx.dir, "missing.csv"), true)
	require.Error(t, err)
	assert.Equal(t, errors.CodeIOError, errors.GetCode(err))
}

func TestPipelineSpectraFromSavedCosmologies(t *testing.T) {
	ctx := context.Background()
	fx := newPipeline(t, 2)
	input, err := testkit.WriteSampleCSV(fx.dir, "lhs.csv", []string{"p1", "p2"}, [][]float64{{0.2, 0.4}, {0.6, 0.8}})
	require.NoError(t, err)

	scaled, err := fx.service.Scale(ctx, input, true)
	require.NoError(t, err)

	res, err := fx.service.Spectra(ctx, filepath.Join(fx.dir, "cosmologies.json"), 2)
	require.NoError(t, err)
	require.Len(t, res.Spectra, 2)
	for i, c := range scaled.Cosmologies {
		assert.Equal(t, testkit.FakeSpectrum(c, fx.engine.K, 2), res.Spectra[i])
	}
}

func TestPipelineSample(t *testing.T) {
	ctx := context.Background()
	fx := newPipeline(t, 3)

	paths, err := fx.service.Sample(ctx, "lhs_20", 20, 42)
	require.NoError(t, err)
	require.Len(t, paths, 1)

	m, err := samples.NewReader(internal.Discard()).ReadSamples(ctx, paths[0])
	require.NoError(t, err)
	assert.Equal(t, 20, m.Len())
	assert.Equal(t, []string{"p1", "p2", "p3"}, m.Columns)

	assert.Equal(t, filepath.Join(fx.dir, "lhs_20.csv"), paths[0])

	res, err := fx.service.Generate(ctx, paths[0], 0)
	require.NoError(t, err)
	assert.Len(t, res.Spectra, 20)
	assert.FileExists(t, filepath.Join(fx.dir, "cosmologies.csv"))
	assert.FileExists(t, filepath.Join(fx.dir, "cosmologies.json"))
}

func TestPipelineSpectraRejectsOtherParameters(t *testing.T) {
	ctx := context.Background()
	other := newPipeline(t, 2)
	input, err := testkit.WriteSampleCSV(other.dir, "lhs.csv", []string{"p1", "p2"}, [][]float64{{0.2, 0.4}})
	require.NoError(t, err)
	_, err = other.service.Scale(ctx, input, true)
	require.NoError(t, err)

	fx := newPipeline(t, 3)
	_, err = fx.service.Spectra(ctx, filepath.Join(other.dir, "cosmologies.json"), 0)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.ErrorIs(t, err, core.ErrColumnMismatch)
	assert.Empty(t, fx.engine.Calls())
	assert.NoFileExists(t, filepath.Join(fx.dir, "pk_linear.csv"))
}

func TestCancelledContextIsInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &cosmology.UnitSampleMatrix{Columns: []string{"p1"}, Rows: [][]float64{{0.5}}}
	_, err := NewScalingService(uniformSet(t, 1), propagate(), nil, internal.Discard()).Scale(ctx, m)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInterrupted, errors.GetCode(err))
	assert.ErrorIs(t, err, context.Canceled)

	c, err := cosmology.NewCosmology([]string{"p1"}, []float64{0.5})
	require.NoError(t, err)
	engine := testkit.NewFakeEngine()
	_, err = NewSpectrumService(engine, nil, internal.Discard()).Generate(ctx, []cosmology.Cosmology{c}, 0)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInterrupted, errors.GetCode(err))
	assert.Empty(t, engine.Calls())
}

func TestSummarizeSkipsNonFinite(t *testing.T) {
	params := testkit.UniformParameters(1)
	var list []cosmology.Cosmology
	for _, v := range []float64{1, 3, math.Inf(1)} {
		c, err := cosmology.NewCosmology([]string{"p1"}, []float64{v})
		require.NoError(t, err)
		list = append(list, c)
	}

	s := Summarize(params, list)
	require.Len(t, s, 1)
	assert.Equal(t, 1.0, s[0].Min)
	assert.Equal(t, 3.0, s[0].Max)
	assert.Equal(t, 2.0, s[0].Mean)
	assert.Equal(t, 1.0, s[0].StdDev)
	assert.Equal(t, 1, s[0].NonFinite)

	empty := Summarize(params, nil)
	require.Len(t, empty, 1)
	assert.Zero(t, empty[0].Mean)
}
