package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pkemu/domain/cosmology"
	"pkemu/internal/errors"
	"pkemu/internal/priors"
)

// Config represents the complete application configuration
type Config struct {
	Paths     PathConfig
	Cosmology CosmologyConfig
	Engine    EngineConfig
	Output    OutputConfig
	Ledger    LedgerConfig
	LogLevel  string
}

// PathConfig locates the input sample file and the output directory
type PathConfig struct {
	DataDir    string
	LHSFile    string
	PriorsFile string
}

// CosmologyConfig is the ordered parameter set with validated priors
type CosmologyConfig struct {
	Parameters []cosmology.Parameter
	Priors     *priors.Set
	Boundary   priors.Boundary
}

// EngineMode selects the power-spectrum engine implementation
type EngineMode string

const (
	EngineAnalytic EngineMode = "analytic"
	EngineCommand  EngineMode = "command"
)

// EngineConfig holds the fixed bounds the engine is constructed with
type EngineConfig struct {
	Mode     EngineMode
	Command  []string
	Timeout  time.Duration
	ZMin     float64
	ZMax     float64
	KMin     float64
	KMax     float64
	KPoints  int
	Redshift float64
}

// TableFormat is the file format of tabular artifacts
type TableFormat string

const (
	TableCSV  TableFormat = "csv"
	TableXLSX TableFormat = "xlsx"
)

// OutputConfig controls which artifacts are written
type OutputConfig struct {
	TableFormat     TableFormat
	SaveCosmologies bool
}

// LedgerConfig points at the optional run ledger database
type LedgerConfig struct {
	URL string
}

// Enabled reports whether a ledger is configured
func (l LedgerConfig) Enabled() bool {
	return l.URL != ""
}

// Load reads configuration from environment variables and validates it.
// Callers load any .env file before calling Load.
func Load() (*Config, error) {
	config := &Config{
		Paths:    loadPathConfig(),
		Ledger:   LedgerConfig{URL: getEnvOrDefault("LEDGER_URL", "")},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	engineConfig, err := loadEngineConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load engine configuration")
	}
	config.Engine = *engineConfig

	outputConfig, err := loadOutputConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load output configuration")
	}
	config.Output = *outputConfig

	cosmoConfig, err := loadCosmologyConfig(config.Paths.PriorsFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load cosmology configuration")
	}
	config.Cosmology = *cosmoConfig

	if err := Validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadPathConfig() PathConfig {
	return PathConfig{
		DataDir:    getEnvOrDefault("DATA_DIR", "data"),
		LHSFile:    getEnvOrDefault("LHS_FILE", "lhs_500"),
		PriorsFile: getEnvOrDefault("PRIORS_FILE", ""),
	}
}

func loadEngineConfig() (*EngineConfig, error) {
	cfg := &EngineConfig{
		Mode:    EngineMode(strings.ToLower(getEnvOrDefault("ENGINE_MODE", string(EngineAnalytic)))),
		Command: strings.Fields(getEnvOrDefault("ENGINE_COMMAND", "")),
	}

	var err error
	if cfg.Timeout, err = getEnvDuration("ENGINE_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ZMin, err = getEnvFloat("Z_MIN", 0); err != nil {
		return nil, err
	}
	if cfg.ZMax, err = getEnvFloat("Z_MAX", 5); err != nil {
		return nil, err
	}
	if cfg.KMin, err = getEnvFloat("K_MIN", 1e-4); err != nil {
		return nil, err
	}
	if cfg.KMax, err = getEnvFloat("K_MAX", 50); err != nil {
		return nil, err
	}
	if cfg.KPoints, err = getEnvInt("K_POINTS", 40); err != nil {
		return nil, err
	}
	if cfg.Redshift, err = getEnvFloat("REDSHIFT", 0); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadOutputConfig() (*OutputConfig, error) {
	save, err := getEnvBool("SAVE_COSMOLOGIES", true)
	if err != nil {
		return nil, err
	}
	return &OutputConfig{
		TableFormat:     TableFormat(strings.ToLower(getEnvOrDefault("TABLE_FORMAT", string(TableCSV)))),
		SaveCosmologies: save,
	}, nil
}

func loadCosmologyConfig(priorsFile string) (*CosmologyConfig, error) {
	params := DefaultParameters()
	if priorsFile != "" {
		loaded, err := LoadParameters(priorsFile)
		if err != nil {
			return nil, err
		}
		params = loaded
	}

	policy, err := priors.ParseBoundaryPolicy(getEnvOrDefault("BOUNDARY_POLICY", string(priors.BoundaryPropagate)))
	if err != nil {
		return nil, errors.ConfigInvalidf(err, "BOUNDARY_POLICY")
	}
	eps, err := getEnvFloat("BOUNDARY_EPSILON", 1e-12)
	if err != nil {
		return nil, err
	}

	return &CosmologyConfig{
		Parameters: params,
		Boundary:   priors.Boundary{Policy: policy, Epsilon: eps},
	}, nil
}

// Validate checks cross-field constraints and builds the prior set. It is
// safe to call on a hand-built Config.
func Validate(config *Config) error {
	e := config.Engine
	switch e.Mode {
	case EngineAnalytic:
	case EngineCommand:
		if len(e.Command) == 0 {
			return errors.ConfigInvalid("ENGINE_COMMAND is required when ENGINE_MODE=command")
		}
	default:
		return errors.ConfigInvalid("ENGINE_MODE must be analytic or command, got " + string(e.Mode))
	}
	if e.ZMin < 0 || e.ZMin > e.ZMax {
		return errors.ConfigInvalid("redshift bounds must satisfy 0 <= Z_MIN <= Z_MAX")
	}
	if !(e.KMin > 0 && e.KMin < e.KMax) {
		return errors.ConfigInvalid("wavenumber bounds must satisfy 0 < K_MIN < K_MAX")
	}
	if e.KPoints < 2 {
		return errors.ConfigInvalid("K_POINTS must be at least 2")
	}
	if e.Timeout <= 0 {
		return errors.ConfigInvalid("ENGINE_TIMEOUT must be positive")
	}

	switch config.Output.TableFormat {
	case TableCSV, TableXLSX:
	default:
		return errors.ConfigInvalid("TABLE_FORMAT must be csv or xlsx, got " + string(config.Output.TableFormat))
	}

	if config.Paths.DataDir == "" {
		return errors.ConfigInvalid("DATA_DIR cannot be empty")
	}
	if config.Paths.LHSFile == "" {
		return errors.ConfigInvalid("LHS_FILE cannot be empty")
	}

	if err := config.Cosmology.Boundary.Validate(); err != nil {
		return errors.ConfigInvalidf(err, "BOUNDARY_EPSILON")
	}
	if err := validateParameters(config.Cosmology.Parameters); err != nil {
		return err
	}
	set, err := priors.NewSet(config.Cosmology.Parameters)
	if err != nil {
		return errors.ConfigInvalidf(err, "invalid prior")
	}
	config.Cosmology.Priors = set
	return nil
}

// InputPath resolves the LHS file name under the data directory, adding
// .csv when the name has no extension.
func (c *Config) InputPath(name string) string {
	if name == "" {
		name = c.Paths.LHSFile
	}
	if filepath.Ext(name) == "" {
		name += ".csv"
	}
	if filepath.IsAbs(name) || strings.ContainsRune(name, os.PathSeparator) {
		return name
	}
	return filepath.Join(c.Paths.DataDir, name)
}

// ParameterNames returns the configured parameter order
func (c *Config) ParameterNames() []string {
	names := make([]string, len(c.Cosmology.Parameters))
	for i, p := range c.Cosmology.Parameters {
		names[i] = p.Name
	}
	return names
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalidf(err, "%s must be an integer", key)
	}
	return intValue, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.ConfigInvalidf(err, "%s must be a number", key)
	}
	return floatValue, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return false, errors.ConfigInvalidf(err, "%s must be a boolean", key)
	}
	return boolValue, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.ConfigInvalidf(err, "%s must be a duration", key)
	}
	return duration, nil
}
