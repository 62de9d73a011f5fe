package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bodgit/bplopt/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, s string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "bplopt.yml")
	require.NoError(t, os.WriteFile(file, []byte(s), 0o644))
	return file
}

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	sc, err := c.Search()
	require.NoError(t, err)
	assert.Equal(t, search.HillClimb, sc.Strategy)
	assert.Equal(t, search.DefaultAnnealParams(), sc.Anneal)
}

func TestLoad(t *testing.T) {
	file := writeFile(t, `
strategy: anneal
layout: interleaved
lock: [0, 15]
seed: 99
anneal:
  cooling: 0.95
  iterations: 50
`)

	c, err := Load(file)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "anneal", c.Strategy)
	assert.Equal(t, "interleaved", c.Layout)
	assert.Equal(t, "zlib", c.Compressor)
	assert.Equal(t, []int{0, 15}, c.Lock)

	sc, err := c.Search()
	require.NoError(t, err)
	assert.Equal(t, search.Config{
		Strategy: search.Anneal,
		Seed:     99,
		Anneal: search.AnnealParams{
			StartTemp:  search.DefaultStartTemp,
			Cooling:    0.95,
			MinTemp:    search.DefaultMinTemp,
			Iterations: 50,
		},
	}, sc)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "strategy: [\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tables := []struct {
		name   string
		modify func(*Config)
	}{
		{"strategy", func(c *Config) { c.Strategy = "tabu" }},
		{"layout", func(c *Config) { c.Layout = "chunky" }},
		{"compressor", func(c *Config) { c.Compressor = "bzip2" }},
		{"anneal", func(c *Config) { c.Strategy = "anneal"; c.Anneal.Cooling = 1.5 }},
		{"chains", func(c *Config) { c.Chains = 0 }},
		{"workers", func(c *Config) { c.Workers = 0 }},
		{"quantize", func(c *Config) { c.Quantize = 1000 }},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			c := Default()
			table.modify(&c)
			assert.Error(t, c.Validate())
		})
	}
}
