package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/plantops/utilbalance/pkg/norms"
)

// Source selects where the snapshot comes from.
type Source struct {
	Kind string `yaml:"kind" validate:"required,oneof=csv postgres"`
	// Dir is the CSV directory, required for kind csv.
	Dir string `yaml:"dir" validate:"required_if=Kind csv"`
	// DSN is the database URL, required for kind postgres.
	DSN string `yaml:"dsn" validate:"required_if=Kind postgres"`
}

// Reference is a benchmark norm stated against utility codes; codes are
// resolved to ids once the snapshot is loaded.
type Reference struct {
	UtilityCode string `yaml:"utility_code" validate:"required"`
	DriverCode  string `yaml:"driver_utility_code" validate:"required"`
	Norm        string `yaml:"norm" validate:"required"`
}

// Config is the YAML run specification.
type Config struct {
	Periods       []int64     `yaml:"periods" validate:"required,min=1,dive,gt=0"`
	Tolerance     string      `yaml:"tolerance"`
	MaxIterations int         `yaml:"max_iterations" validate:"gte=0"`
	Workers       int         `yaml:"workers" validate:"gte=0"`
	Format        string      `yaml:"format" validate:"omitempty,oneof=text json csv"`
	Source        Source      `yaml:"source" validate:"required"`
	References    []Reference `yaml:"references" validate:"dive"`
}

// Load reads, parses and validates a run specification.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses and validates a run specification from raw YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Tolerance != "" {
		if _, err := decimal.NewFromString(cfg.Tolerance); err != nil {
			return nil, fmt.Errorf("invalid config: tolerance %q is not a decimal", cfg.Tolerance)
		}
	}
	for _, ref := range cfg.References {
		if _, err := decimal.NewFromString(ref.Norm); err != nil {
			return nil, fmt.Errorf("invalid config: reference norm %q for %s is not a decimal", ref.Norm, ref.UtilityCode)
		}
	}
	return &cfg, nil
}

// PeriodIDs returns the configured periods as typed ids.
func (c *Config) PeriodIDs() []norms.PeriodID {
	out := make([]norms.PeriodID, len(c.Periods))
	for i, p := range c.Periods {
		out[i] = norms.PeriodID(p)
	}
	return out
}

// ResolveOptions maps the config onto resolver options. Empty tolerance and
// zero cap select the resolver defaults.
func (c *Config) ResolveOptions() norms.ResolveOptions {
	opts := norms.ResolveOptions{MaxIterations: c.MaxIterations}
	if c.Tolerance != "" {
		opts.Tolerance = decimal.RequireFromString(c.Tolerance)
	}
	return opts
}

// ResolveReferences maps code-based references onto utility ids using the
// loaded graph.
func (c *Config) ResolveReferences(g *norms.NormsGraph) (map[norms.UtilityID]norms.ReferenceNorm, error) {
	if len(c.References) == 0 {
		return nil, nil
	}
	refs := make(map[norms.UtilityID]norms.ReferenceNorm, len(c.References))
	for _, r := range c.References {
		u, ok := g.UtilityByCode(r.UtilityCode)
		if !ok {
			return nil, fmt.Errorf("reference norm names unknown utility code %q", r.UtilityCode)
		}
		driver, ok := g.UtilityByCode(r.DriverCode)
		if !ok {
			return nil, fmt.Errorf("reference norm for %s names unknown driver code %q", r.UtilityCode, r.DriverCode)
		}
		refs[u.ID] = norms.ReferenceNorm{
			DriverUtilityID: driver.ID,
			Norm:            decimal.RequireFromString(r.Norm),
		}
	}
	return refs, nil
}
