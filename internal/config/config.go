package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"cimpute/domain/core"
	"cimpute/internal"
	"cimpute/internal/errors"
	"cimpute/internal/imputation"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Data       DataConfig
	Imputation ImputationConfig
	LogLevel   internal.LogLevel
}

// DataConfig holds table locations and column conventions
type DataConfig struct {
	InputFile          string
	OutputFile         string
	IDColumn           string
	QuantMarker        string
	Groups             []string
	MinPresentFraction float64
	Log2               bool
}

// ImputationConfig holds the engine parameters
type ImputationConfig struct {
	MinCS            float64
	LocationFraction float64
	NNeighbors       int
	Weights          string
	Seed             int64
	Workers          int
}

type lookupFunc func(key string) (string, bool)

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	return load(os.LookupEnv)
}

// LoadFile reads an env file and layers the process environment over it. The process
// environment itself is not modified.
func LoadFile(path string) (*Config, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, errors.FileError(path, err)
	}
	return load(func(key string) (string, bool) {
		if v := os.Getenv(key); v != "" {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	})
}

func load(lookup lookupFunc) (*Config, error) {
	env := &envReader{lookup: lookup}
	defaults := imputation.DefaultOptions()

	config := &Config{
		Data: DataConfig{
			InputFile:          env.getString("CIMPUTE_INPUT", ""),
			OutputFile:         env.getString("CIMPUTE_OUTPUT", ""),
			IDColumn:           env.getString("CIMPUTE_ID_COLUMN", "protein_id"),
			QuantMarker:        env.getString("CIMPUTE_QUANT_MARKER", "log2_lfq"),
			Groups:             env.getList("CIMPUTE_GROUPS"),
			MinPresentFraction: env.getFloat("CIMPUTE_MIN_PRESENT", 0),
			Log2:               env.getBool("CIMPUTE_LOG2", false),
		},
		Imputation: ImputationConfig{
			MinCS:            env.getFloat("CIMPUTE_MIN_CS", defaults.MinCS),
			LocationFraction: env.getFloat("CIMPUTE_LOC_UP_MNAR", defaults.LocationFraction),
			NNeighbors:       env.getInt("CIMPUTE_N_NEIGHBORS", defaults.NNeighbors),
			Weights:          env.getString("CIMPUTE_KNN_WEIGHTS", string(defaults.Weights)),
			Seed:             env.getInt64("CIMPUTE_SEED", defaults.Seed),
			Workers:          env.getInt("CIMPUTE_WORKERS", defaults.Workers),
		},
		LogLevel: internal.ParseLogLevel(env.getString("LOG_LEVEL", "INFO")),
	}

	if env.err != nil {
		return nil, env.err
	}
	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Data.IDColumn == "" {
		return invalid("CIMPUTE_ID_COLUMN", "must not be empty")
	}
	if config.Data.QuantMarker == "" {
		return invalid("CIMPUTE_QUANT_MARKER", "must not be empty")
	}
	if f := config.Data.MinPresentFraction; math.IsNaN(f) || f < 0 || f > 1 {
		return invalid("CIMPUTE_MIN_PRESENT", fmt.Sprintf("%v is outside [0, 1]", f))
	}
	if _, err := config.Options(); err != nil {
		return errors.ConfigInvalid("invalid imputation settings", err)
	}
	return nil
}

// Options converts the imputation settings into engine options
func (c *Config) Options() (imputation.Options, error) {
	weights, err := imputation.ParseWeighting(c.Imputation.Weights)
	if err != nil {
		return imputation.Options{}, err
	}
	opts := imputation.Options{
		MinCS:            c.Imputation.MinCS,
		LocationFraction: c.Imputation.LocationFraction,
		NNeighbors:       c.Imputation.NNeighbors,
		Weights:          weights,
		Seed:             c.Imputation.Seed,
		Workers:          c.Imputation.Workers,
	}
	for _, g := range c.Data.Groups {
		opts.Groups = append(opts.Groups, core.GroupName(g))
	}
	if err := opts.Validate(); err != nil {
		return imputation.Options{}, err
	}
	return opts, nil
}

func invalid(key, reason string) error {
	return errors.ConfigInvalid(key+" "+reason, core.NewInvalidConfigError(key, reason))
}

// envReader parses typed values and keeps the first parse failure
type envReader struct {
	lookup lookupFunc
	err    error
}

func (r *envReader) raw(key string) (string, bool) {
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *envReader) fail(key, value string, cause error) {
	if r.err == nil {
		r.err = invalid(key, fmt.Sprintf("cannot parse %q: %v", value, cause))
	}
}

func (r *envReader) getString(key, defaultValue string) string {
	if v, ok := r.raw(key); ok {
		return v
	}
	return defaultValue
}

func (r *envReader) getList(key string) []string {
	v, ok := r.raw(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *envReader) getInt(key string, defaultValue int) int {
	v, ok := r.raw(key)
	if !ok {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, err)
		return defaultValue
	}
	return n
}

func (r *envReader) getInt64(key string, defaultValue int64) int64 {
	v, ok := r.raw(key)
	if !ok {
		return defaultValue
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.fail(key, v, err)
		return defaultValue
	}
	return n
}

func (r *envReader) getFloat(key string, defaultValue float64) float64 {
	v, ok := r.raw(key)
	if !ok {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, v, err)
		return defaultValue
	}
	return f
}

func (r *envReader) getBool(key string, defaultValue bool) bool {
	v, ok := r.raw(key)
	if !ok {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, err)
		return defaultValue
	}
	return b
}
