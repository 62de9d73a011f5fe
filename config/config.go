// Package config holds the search settings that can be stored in a YAML
// file. Values on the command line take precedence over the file.
package config

import (
	"fmt"
	"os"

	"github.com/bodgit/bplopt/oracle"
	"github.com/bodgit/bplopt/planar"
	"github.com/bodgit/bplopt/search"
	"gopkg.in/yaml.v3"
)

// Anneal holds the simulated annealing schedule.
type Anneal struct {
	StartTemp  float64 `yaml:"start-temp"`
	Cooling    float64 `yaml:"cooling"`
	MinTemp    float64 `yaml:"min-temp"`
	Iterations int     `yaml:"iterations"`
}

// Config is the full set of search settings.
type Config struct {
	Strategy   string `yaml:"strategy"`
	Layout     string `yaml:"layout"`
	Compressor string `yaml:"compressor"`
	Lock       []int  `yaml:"lock"`
	Seed       int64  `yaml:"seed"`
	Chains     int    `yaml:"chains"`
	Workers    int    `yaml:"workers"`
	Quantize   int    `yaml:"quantize"`
	Resume     bool   `yaml:"resume"`
	Anneal     Anneal `yaml:"anneal"`
}

// Default returns the built-in settings.
func Default() Config {
	p := search.DefaultAnnealParams()
	return Config{
		Strategy:   search.HillClimb.String(),
		Layout:     planar.Planar.String(),
		Compressor: oracle.Default,
		Chains:     1,
		Workers:    4,
		Anneal: Anneal{
			StartTemp:  p.StartTemp,
			Cooling:    p.Cooling,
			MinTemp:    p.MinTemp,
			Iterations: p.Iterations,
		},
	}
}

// Load reads file on top of the defaults. Keys missing from the file keep
// their default value.
func Load(file string) (Config, error) {
	c := Default()

	b, err := os.ReadFile(file)
	if err != nil {
		return c, fmt.Errorf("config: %w", err)
	}

	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("config: %w", err)
	}

	return c, nil
}

// Search converts the settings into a search.Config.
func (c Config) Search() (search.Config, error) {
	s, err := search.ParseStrategy(c.Strategy)
	if err != nil {
		return search.Config{}, err
	}
	return search.Config{
		Strategy: s,
		Seed:     c.Seed,
		Anneal: search.AnnealParams{
			StartTemp:  c.Anneal.StartTemp,
			Cooling:    c.Anneal.Cooling,
			MinTemp:    c.Anneal.MinTemp,
			Iterations: c.Anneal.Iterations,
		},
	}, nil
}

// Validate checks every named setting is known and the numbers are usable.
func (c Config) Validate() error {
	sc, err := c.Search()
	if err != nil {
		return err
	}
	if sc.Strategy == search.Anneal {
		if err := sc.Anneal.Validate(); err != nil {
			return err
		}
	}
	if _, err := planar.ParseLayout(c.Layout); err != nil {
		return err
	}
	if _, err := oracle.New(c.Compressor); err != nil {
		return err
	}
	if c.Chains < 1 {
		return fmt.Errorf("config: chains must be at least 1")
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1")
	}
	if c.Quantize < 0 || c.Quantize > planar.MaxColors {
		return fmt.Errorf("config: quantize must be between 0 and %d", planar.MaxColors)
	}
	return nil
}
