// Package command computes power spectra by running an external program once
// per cosmology. The program reads a JSON request on stdin and prints
// {"k": [...], "pk": [...]} on stdout.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"gonum.org/v1/gonum/floats"

	"pkemu/domain/core"
	"pkemu/domain/cosmology"
	"pkemu/internal"
	"pkemu/internal/errors"
)

// EngineName identifies this engine in manifests and the run ledger
const EngineName = "command"

// Config configures the external program
type Config struct {
	Command []string
	Timeout time.Duration
	Env     []string // appended to the inherited environment
}

// Engine implements ports.SpectrumEngine
type Engine struct {
	cfg    Config
	bounds cosmology.EngineBounds
	k      []float64
	logger *internal.Logger
}

// request is what the program receives on stdin
type request struct {
	Cosmology cosmology.Cosmology    `json:"cosmology"`
	Redshift  float64                `json:"redshift"`
	Bounds    cosmology.EngineBounds `json:"bounds"`
	K         []float64              `json:"k"`
}

// New creates an engine that runs cfg.Command for every cosmology
func New(cfg Config, bounds cosmology.EngineBounds, logger *internal.Logger) (*Engine, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.ConfigInvalid("engine command is empty")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.ConfigInvalid("engine timeout must be positive")
	}
	if err := bounds.Validate(); err != nil {
		return nil, errors.ConfigInvalidf(err, "invalid engine bounds")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Engine{
		cfg:    cfg,
		bounds: bounds,
		k:      floats.LogSpan(make([]float64, bounds.KPoints), bounds.KMin, bounds.KMax),
		logger: logger.With(EngineName),
	}, nil
}

// Name includes the program so manifests record what produced the spectra
func (e *Engine) Name() string {
	return EngineName + ":" + strings.Join(e.cfg.Command, " ")
}

// PkLinear runs the program for one cosmology
func (e *Engine) PkLinear(ctx context.Context, c cosmology.Cosmology, redshift float64) (cosmology.Spectrum, error) {
	if err := ctx.Err(); err != nil {
		return cosmology.Spectrum{}, errors.Interrupted(err)
	}
	if !e.bounds.Contains(redshift) {
		return cosmology.Spectrum{}, errors.InvalidInputf(core.ErrRedshiftOutOfRange,
			"z = %g outside [%g, %g]", redshift, e.bounds.ZMin, e.bounds.ZMax)
	}

	payload, err := json.Marshal(request{Cosmology: c, Redshift: redshift, Bounds: e.bounds, K: e.k})
	if err != nil {
		return cosmology.Spectrum{}, errors.Wrap(err, "failed to encode engine request")
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.cfg.Command[0], e.cfg.Command[1:]...)
	cmd.Env = append(os.Environ(), e.cfg.Env...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w after %s", ctx.Err(), e.cfg.Timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return cosmology.Spectrum{}, errors.ExternalServiceError(EngineName, err)
	}
	e.logger.Debug("engine returned %d bytes in %s", stdout.Len(), time.Since(start))

	sp, err := parseResponse(stdout.Bytes(), e.k)
	if err != nil {
		return cosmology.Spectrum{}, errors.ExternalServiceError(EngineName, err)
	}
	sp.Redshift = redshift
	return sp, nil
}

// parseResponse reads k and pk from the program output. When k is absent
// the request grid is assumed.
func parseResponse(out []byte, grid []float64) (cosmology.Spectrum, error) {
	if !gjson.ValidBytes(out) {
		return cosmology.Spectrum{}, fmt.Errorf("%w: output is not JSON", core.ErrBadEngineResponse)
	}

	pk, err := floatArray(gjson.GetBytes(out, "pk"), "pk")
	if err != nil {
		return cosmology.Spectrum{}, err
	}
	k := append([]float64(nil), grid...)
	if res := gjson.GetBytes(out, "k"); res.Exists() {
		if k, err = floatArray(res, "k"); err != nil {
			return cosmology.Spectrum{}, err
		}
	}

	sp := cosmology.Spectrum{K: k, P: pk}
	if sp.Len() == 0 {
		return cosmology.Spectrum{}, fmt.Errorf("%w: empty spectrum", core.ErrBadEngineResponse)
	}
	if err := sp.Validate(); err != nil {
		return cosmology.Spectrum{}, fmt.Errorf("%w: %v", core.ErrBadEngineResponse, err)
	}
	return sp, nil
}

func floatArray(res gjson.Result, field string) ([]float64, error) {
	if !res.IsArray() {
		return nil, fmt.Errorf("%w: %q is not an array", core.ErrBadEngineResponse, field)
	}
	items := res.Array()
	out := make([]float64, len(items))
	for i, item := range items {
		if item.Type != gjson.Number {
			return nil, fmt.Errorf("%w: %s[%d] is not a number", core.ErrBadEngineResponse, field, i)
		}
		out[i] = item.Float()
	}
	return out, nil
}
