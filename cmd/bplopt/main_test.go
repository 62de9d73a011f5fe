package main

import (
	"testing"

	"github.com/bodgit/bplopt/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func flagConfig(t *testing.T, base config.Config, args ...string) config.Config {
	t.Helper()

	cfg := base
	app := cli.NewApp()
	app.Commands = []*cli.Command{
		{
			Name:  "optimize",
			Flags: append(searchFlags(), paletteFlags()...),
			Action: func(c *cli.Context) error {
				applyFlags(c, &cfg)
				return nil
			},
		},
	}
	require.NoError(t, app.Run(append([]string{"bplopt", "optimize"}, args...)))

	return cfg
}

func TestApplyFlags(t *testing.T) {
	file := config.Default()
	file.Strategy = "anneal"
	file.Layout = "interleaved"
	file.Compressor = "zstd"
	file.Anneal.Iterations = 50

	tables := []struct {
		name string
		args []string
		want func(*config.Config)
	}{
		{
			name: "unset flags keep file values",
			want: func(*config.Config) {},
		},
		{
			name: "false booleans override file",
			args: []string{"--simulated-annealing=false", "--interleaved=false"},
			want: func(c *config.Config) {
				c.Strategy = "hill-climb"
				c.Layout = "planar"
			},
		},
		{
			name: "explicit values",
			args: []string{"--compressor", "lz4", "--lock", "1,3", "--sa-iterations", "7", "--seed", "9"},
			want: func(c *config.Config) {
				c.Compressor = "lz4"
				c.Lock = []int{1, 3}
				c.Anneal.Iterations = 7
				c.Seed = 9
			},
		},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			want := file
			table.want(&want)
			assert.Equal(t, want, flagConfig(t, file, table.args...))
		})
	}

	// Booleans still switch a default config on
	cfg := flagConfig(t, config.Default(), "-s", "-i")
	assert.Equal(t, "anneal", cfg.Strategy)
	assert.Equal(t, "interleaved", cfg.Layout)
}
