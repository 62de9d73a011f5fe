/*
Package bplopt is a library for reordering the palette of indexed images so
the bitplane data converted from them compresses as small as possible.
*/
package bplopt

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bodgit/bplopt/config"
	"github.com/bodgit/bplopt/history"
	"github.com/bodgit/bplopt/indexed"
	"github.com/bodgit/bplopt/oracle"
	"github.com/bodgit/bplopt/planar"
	"github.com/bodgit/bplopt/search"
)

// Optimizer runs palette searches and optionally records them in a run
// history database.
type Optimizer struct {
	db       *history.DB
	logger   *slog.Logger
	progress func(search.Progress)
}

// New returns an Optimizer. db may be nil in which case no history is kept.
func New(db *history.DB, logger *slog.Logger) *Optimizer {
	return &Optimizer{
		db:     db,
		logger: logger,
	}
}

// SetProgress sets a callback invoked as a single search progresses. It is
// never called concurrently.
func (o *Optimizer) SetProgress(f func(search.Progress)) {
	o.progress = f
}

// Result is the outcome of optimizing an image.
type Result struct {
	search.Result
	// ChunkySize is the compressed size of the unconverted pixel data
	ChunkySize int
	// Palette lists the original palette index for each output slot
	Palette []int
}

// imageSHA1 hashes the decoded image so the same picture gets the same key
// regardless of how the file was encoded.
func imageSHA1(m *indexed.Image) string {
	h := sha1.New()
	var tmp [8]byte
	binary.BigEndian.PutUint32(tmp[0:], uint32(m.Width))
	binary.BigEndian.PutUint32(tmp[4:], uint32(m.Height))
	h.Write(tmp[:])
	for _, c := range m.Palette {
		r, g, b, a := c.RGBA()
		h.Write([]byte{byte(r >> 8), byte(g >> 8), byte(b >> 8), byte(a >> 8)})
	}
	h.Write(m.Pix)
	return fmt.Sprintf("%X", h.Sum(nil))
}

func historyKey(m *indexed.Image, c config.Config, locks search.LockMask) history.Key {
	return history.Key{
		SHA1:       imageSHA1(m),
		Layout:     c.Layout,
		Compressor: c.Compressor,
		Locked:     locks.Locked(),
	}
}

// Optimize searches for the palette order of m that gives the smallest
// compressed bitplane data. If ctx is cancelled the best result found so far
// is returned along with the context's error.
func (o *Optimizer) Optimize(ctx context.Context, m *indexed.Image, c config.Config) (*Result, error) {
	return o.optimize(ctx, m, c, o.progress, o.logger)
}

func (o *Optimizer) optimize(ctx context.Context, m *indexed.Image, c config.Config, progress func(search.Progress), logger *slog.Logger) (*Result, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	sc, err := c.Search()
	if err != nil {
		return nil, err
	}

	layout, err := planar.ParseLayout(c.Layout)
	if err != nil {
		return nil, err
	}

	conv, err := m.Converter(layout)
	if err != nil {
		return nil, err
	}

	locks, ignored := search.NewLockMask(m.Colors(), c.Lock)
	for _, i := range ignored {
		logger.Warn("ignoring out of range lock index", "index", i, "colors", m.Colors())
	}

	comp, err := oracle.New(c.Compressor)
	if err != nil {
		return nil, err
	}

	chunky, err := comp.CompressedSize(m.Pix)
	if err != nil {
		return nil, err
	}
	logger.Info("compressed chunky size", "size", chunky, "compressor", c.Compressor)

	var opts []search.Option
	key := historyKey(m, c, locks)
	if c.Resume && o.db != nil {
		best, err := o.db.Best(key)
		if err != nil {
			return nil, err
		}
		if best != nil && len(best.Order) == m.Colors() && search.Order(best.Order).Valid() {
			logger.Info("resuming from previous best", "run", best.ID, "size", best.Size)
			opts = append(opts, search.WithOrder(best.Order))
		}
	}

	var r search.Result
	if sc.Strategy == search.Anneal && c.Chains > 1 {
		r, err = o.runChains(ctx, conv, c, sc, m.Colors(), locks, progress, logger, opts)
	} else {
		opts = append(opts, search.WithLogger(logger))
		if progress != nil {
			opts = append(opts, search.WithProgress(progress))
		}
		r, err = search.Minimize(ctx, conv, comp, m.Colors(), locks, sc, opts...)
	}
	if r.Order == nil {
		return nil, err
	}

	result := &Result{
		Result:     r,
		ChunkySize: chunky,
		Palette:    r.Order.Inverse(),
	}

	if err != nil {
		return result, err
	}

	logger.Info("search complete", "initial", r.InitialSize, "best", r.Size, "evaluations", r.Evaluations)

	if o.db != nil {
		id, err := o.db.Record(history.Run{
			Key:         key,
			Strategy:    c.Strategy,
			Seed:        c.Seed,
			InitialSize: r.InitialSize,
			Size:        r.Size,
			Order:       r.Order,
		})
		if err != nil {
			return result, err
		}
		logger.Debug("recorded run", "run", id)
	}

	return result, nil
}

// runChains runs independent annealing chains concurrently, chain k seeded
// with the configured seed plus k, and keeps the smallest result. Ties go to
// the lowest chain so the outcome only depends on the seed and chain count.
func (o *Optimizer) runChains(ctx context.Context, conv search.Converter, c config.Config, sc search.Config, colors int, locks search.LockMask, progress func(search.Progress), logger *slog.Logger, opts []search.Option) (search.Result, error) {
	results := make([]search.Result, c.Chains)

	var mu sync.Mutex
	best := -1
	report := func(p search.Progress) {
		mu.Lock()
		defer mu.Unlock()
		if best < 0 || p.Best < best {
			best = p.Best
		}
		p.Best = best
		progress(p)
	}

	var errcList []<-chan error
	for k := 0; k < c.Chains; k++ {
		comp, err := oracle.New(c.Compressor)
		if err != nil {
			return search.Result{}, err
		}

		chainOpts := append(opts[:len(opts):len(opts)], search.WithLogger(logger.With("chain", k)))
		if progress != nil {
			chainOpts = append(chainOpts, search.WithProgress(report))
		}

		cfg := sc
		cfg.Seed = sc.Seed + int64(k)

		errc := make(chan error, 1)
		go func(k int) {
			defer close(errc)
			r, err := search.Minimize(ctx, conv, comp, colors, locks, cfg, chainOpts...)
			results[k] = r
			errc <- err
		}(k)
		errcList = append(errcList, errc)
	}

	err := waitForPipeline(errcList...)

	var r search.Result
	for k, cr := range results {
		if cr.Order == nil {
			continue
		}
		if r.Order == nil || cr.Size < r.Size {
			r = cr
			logger.Debug("chain result", "chain", k, "size", cr.Size)
		}
	}

	// Every chain evaluated its own starting order
	r.Evaluations = 0
	for _, cr := range results {
		r.Evaluations += cr.Evaluations
	}

	return r, err
}

// History returns the recorded runs, oldest first. If file is not empty only
// runs for that image are returned; colors must match the quantization used
// when it was optimized.
func (o *Optimizer) History(file string, colors int) ([]history.Run, error) {
	if o.db == nil {
		return nil, errors.New("no history database")
	}

	if file == "" {
		return o.db.List("")
	}

	m, err := o.decodeFile(file, colors, o.logger)
	if err != nil {
		return nil, err
	}

	return o.db.List(imageSHA1(m))
}
