package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/bodgit/bplopt"
	"github.com/bodgit/bplopt/config"
	"github.com/bodgit/bplopt/history"
	"github.com/bodgit/bplopt/oracle"
	"github.com/bodgit/bplopt/planar"
	"github.com/bodgit/bplopt/search"
	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *slog.Logger {
	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !term.IsTerminal(int(os.Stderr.Fd())),
	}))
}

func loadConfig(c *cli.Context) (config.Config, error) {
	if file := c.String("config"); file != "" {
		return config.Load(file)
	}
	return config.Default(), nil
}

// applyFlags overrides the configuration with any flags that were given on
// the command line.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("simulated-annealing") {
		cfg.Strategy = search.HillClimb.String()
		if c.Bool("simulated-annealing") {
			cfg.Strategy = search.Anneal.String()
		}
	}
	if c.IsSet("interleaved") {
		cfg.Layout = planar.Planar.String()
		if c.Bool("interleaved") {
			cfg.Layout = planar.Interleaved.String()
		}
	}
	if c.IsSet("lock") {
		cfg.Lock = c.IntSlice("lock")
	}
	if c.IsSet("compressor") {
		cfg.Compressor = c.String("compressor")
	}
	if c.IsSet("seed") {
		cfg.Seed = c.Int64("seed")
	}
	if c.IsSet("chains") {
		cfg.Chains = c.Int("chains")
	}
	if c.IsSet("quantize") {
		cfg.Quantize = c.Int("quantize")
	}
	if c.IsSet("resume") {
		cfg.Resume = c.Bool("resume")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("sa-start-temp") {
		cfg.Anneal.StartTemp = c.Float64("sa-start-temp")
	}
	if c.IsSet("sa-cooling") {
		cfg.Anneal.Cooling = c.Float64("sa-cooling")
	}
	if c.IsSet("sa-min-temp") {
		cfg.Anneal.MinTemp = c.Float64("sa-min-temp")
	}
	if c.IsSet("sa-iterations") {
		cfg.Anneal.Iterations = c.Int("sa-iterations")
	}
}

func searchFlags() []cli.Flag {
	d := config.Default()
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "interleaved",
			Aliases: []string{"i"},
			Usage:   "use interleaved bitplanes",
		},
		&cli.IntSliceFlag{
			Name:    "lock",
			Aliases: []string{"l"},
			Usage:   "palette indexes that must not move (comma separated)",
		},
		&cli.BoolFlag{
			Name:    "simulated-annealing",
			Aliases: []string{"s"},
			Usage:   "use simulated annealing instead of hill climbing",
		},
		&cli.Float64Flag{
			Name:    "sa-start-temp",
			Aliases: []string{"t"},
			Value:   d.Anneal.StartTemp,
			Usage:   "starting temperature",
		},
		&cli.Float64Flag{
			Name:    "sa-cooling",
			Aliases: []string{"c"},
			Value:   d.Anneal.Cooling,
			Usage:   "cooling multiplier",
		},
		&cli.Float64Flag{
			Name:    "sa-min-temp",
			Aliases: []string{"m"},
			Value:   d.Anneal.MinTemp,
			Usage:   "stop when the temperature falls to this value",
		},
		&cli.IntFlag{
			Name:    "sa-iterations",
			Aliases: []string{"I"},
			Value:   d.Anneal.Iterations,
			Usage:   "number of swaps per temperature step",
		},
		&cli.Int64Flag{
			Name:  "seed",
			Usage: "random seed for simulated annealing",
		},
		&cli.IntFlag{
			Name:  "chains",
			Value: d.Chains,
			Usage: "number of simulated annealing chains to run in parallel",
		},
		&cli.StringFlag{
			Name:  "compressor",
			Value: d.Compressor,
			Usage: "compressor to optimize for (" + strings.Join(oracle.Names(), ", ") + ")",
		},
		&cli.IntFlag{
			Name:  "quantize",
			Usage: "quantize non-indexed images to this many colors",
		},
		&cli.BoolFlag{
			Name:  "resume",
			Usage: "start from the best order in the history database",
		},
	}
}

func paletteFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "raw-palette",
			Aliases: []string{"r"},
			Usage:   "export raw 12-bit palette to `FILE`",
		},
		&cli.StringFlag{
			Name:    "copper-palette",
			Aliases: []string{"C"},
			Usage:   "export palette as a copper list to `FILE`",
		},
	}
}

func paletteFiles(c *cli.Context) bplopt.PaletteFiles {
	return bplopt.PaletteFiles{
		Raw:    c.String("raw-palette"),
		Copper: c.String("copper-palette"),
	}
}

func openOptimizer(c *cli.Context) (*bplopt.Optimizer, *history.DB, error) {
	logger := newLogger(c)

	var db *history.DB
	if file := c.String("db"); file != "" {
		var err error
		if db, err = history.Open(file); err != nil {
			return nil, nil, err
		}
	}

	return bplopt.New(db, logger), db, nil
}

// progressPrinter rewrites a single status line, but only on a terminal.
type progressPrinter struct {
	w       io.Writer
	printed bool
}

func (p *progressPrinter) update(s search.Progress) {
	if s.Temperature > 0 {
		fmt.Fprintf(p.w, "\rBest: %s T: %.2f    ", humanize.Comma(int64(s.Best)), s.Temperature)
	} else {
		fmt.Fprintf(p.w, "\rBest: %s   ", humanize.Comma(int64(s.Best)))
	}
	p.printed = true
}

func (p *progressPrinter) finish() {
	if p.printed {
		fmt.Fprintln(p.w)
	}
}

func printPalette(w io.Writer, order []int) {
	s := make([]string, len(order))
	for i, v := range order {
		s[i] = strconv.Itoa(v)
	}
	fmt.Fprintf(w, "Palette order:\n%s\n", strings.Join(s, ", "))
}

func optimize(c *cli.Context) error {
	if c.NArg() != 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.Name, 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	applyFlags(c, &cfg)

	o, db, err := openOptimizer(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if db != nil {
		defer db.Close()
	}

	var progress *progressPrinter
	if term.IsTerminal(int(os.Stdout.Fd())) {
		progress = &progressPrinter{w: os.Stdout}
		o.SetProgress(progress.update)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	r, err := o.OptimizeFile(ctx, c.Args().Get(0), c.Args().Get(1), cfg, paletteFiles(c))
	if progress != nil {
		progress.finish()
	}
	if r != nil {
		fmt.Printf("Compressed chunky size %s\n", humanize.Comma(int64(r.ChunkySize)))
		fmt.Printf("Initial: %s\n", humanize.Comma(int64(r.InitialSize)))
		fmt.Printf("Best: %s (%s saved)\n", humanize.Comma(int64(r.Size)), humanize.Bytes(uint64(r.InitialSize-r.Size)))
		printPalette(os.Stdout, r.Palette)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return cli.Exit("interrupted, output not written", 130)
		}
		return cli.Exit(err, 1)
	}

	fmt.Printf("Updated PNG written to %s\n", c.Args().Get(1))

	return nil
}

func convert(c *cli.Context) error {
	if c.NArg() != 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.Name, 1)
	}

	o, db, err := openOptimizer(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if db != nil {
		defer db.Close()
	}

	opts := bplopt.ConvertOptions{
		PaletteFiles: paletteFiles(c),
		Quantize:     c.Int("quantize"),
	}
	if c.Bool("interleaved") {
		opts.Layout = planar.Interleaved
	}

	if err := o.Convert(c.Args().Get(0), c.Args().Get(1), opts); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func batch(c *cli.Context) error {
	if c.NArg() != 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.Name, 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	applyFlags(c, &cfg)

	o, db, err := openOptimizer(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if db != nil {
		defer db.Close()
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	if err := o.Batch(ctx, c.Args().Get(0), c.Args().Get(1), cfg); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func listHistory(c *cli.Context) error {
	if c.String("db") == "" {
		return cli.Exit("no history database, use --db", 1)
	}

	o, db, err := openOptimizer(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer db.Close()

	runs, err := o.History(c.Args().First(), c.Int("quantize"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tIMAGE\tSTRATEGY\tSEED\tLAYOUT\tCOMPRESSOR\tLOCKED\tINITIAL\tBEST")
	for _, r := range runs {
		locked := make([]string, len(r.Locked))
		for i, v := range r.Locked {
			locked[i] = strconv.Itoa(v)
		}
		fmt.Fprintf(w, "%d\t%s\t%.8s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, humanize.Time(r.Created), r.SHA1, r.Strategy, r.Seed, r.Layout, r.Compressor,
			strings.Join(locked, ","), humanize.Comma(int64(r.InitialSize)), humanize.Comma(int64(r.Size)))
	}
	return w.Flush()
}

func main() {
	app := cli.NewApp()

	app.Name = "bplopt"
	app.Usage = "Bitplane palette order optimizer"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			EnvVars: []string{"BPLOPT_CONFIG"},
			Usage:   "path to YAML configuration file",
		},
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"BPLOPT_DB"},
			Usage:   "path to run history database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "optimize",
			Usage:       "Reorder the palette for the smallest compressed bitplanes",
			Description: "",
			ArgsUsage:   "INPUT OUTPUT",
			Flags:       append(searchFlags(), paletteFlags()...),
			Action:      optimize,
		},
		{
			Name:        "convert",
			Usage:       "Convert an indexed image to bitplane data",
			Description: "",
			ArgsUsage:   "INPUT OUTPUT",
			Flags: append([]cli.Flag{
				&cli.BoolFlag{
					Name:    "interleaved",
					Aliases: []string{"i"},
					Usage:   "use interleaved bitplanes",
				},
				&cli.IntFlag{
					Name:  "quantize",
					Usage: "quantize non-indexed images to this many colors",
				},
			}, paletteFlags()...),
			Action: convert,
		},
		{
			Name:        "batch",
			Usage:       "Optimize every image in a directory",
			Description: "",
			ArgsUsage:   "DIRECTORY OUTPUT",
			Flags: append(searchFlags(), &cli.IntFlag{
				Name:  "workers",
				Value: config.Default().Workers,
				Usage: "number of images to optimize in parallel",
			}),
			Action: batch,
		},
		{
			Name:        "history",
			Usage:       "List recorded runs",
			Description: "",
			ArgsUsage:   "[IMAGE]",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "quantize",
					Usage: "quantize non-indexed images to this many colors",
				},
			},
			Action: listHistory,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
