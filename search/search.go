/*
Package search finds a palette order that makes converted image data
compress as small as possible.

An Engine owns a permutation of palette indices. Each candidate permutation
is rendered with a Converter and measured with a Compressor; the two search
strategies only differ in which swap they try next and whether they keep it.
HillClimb is a deterministic greedy descent over every pair of unlocked
indices. Anneal is simulated annealing driven by an explicitly seeded random
source.

An Engine is not safe for concurrent use. Independent searches should each
use their own Engine.
*/
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var errOrderLength = errors.New("search: order length does not match colors")

// Converter renders the image with the given palette order into dst.
type Converter interface {
	Convert(dst, order []byte)
	Size() int
}

// Compressor measures the compressed size of a buffer.
type Compressor interface {
	CompressedSize(b []byte) (int, error)
}

// Strategy selects the search algorithm.
type Strategy int

const (
	// HillClimb repeatedly tries every pair swap until none improves
	HillClimb Strategy = iota
	// Anneal uses simulated annealing
	Anneal
)

func (s Strategy) String() string {
	switch s {
	case HillClimb:
		return "hill-climb"
	case Anneal:
		return "anneal"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy returns the Strategy with the given name.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "hill-climb":
		return HillClimb, nil
	case "anneal":
		return Anneal, nil
	}
	return HillClimb, fmt.Errorf("search: unknown strategy %q", s)
}

// Config configures a single run of an Engine.
type Config struct {
	Strategy Strategy
	// Seed for the random source used by Anneal
	Seed   int64
	Anneal AnnealParams
}

// Progress is passed to the progress callback whenever a new best is found
// and after every temperature step.
type Progress struct {
	Best        int
	Current     int
	Evaluations int
	Temperature float64
}

// Result is the outcome of a search.
type Result struct {
	// Order is the best order found
	Order Order
	// Size is the compressed size using Order
	Size int
	// InitialSize is the compressed size of the starting order
	InitialSize int
	Evaluations int
	// Passes is the number of full passes made by HillClimb
	Passes int
	// Steps is the number of temperature steps made by Anneal
	Steps int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used to report search progress.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithProgress sets a callback that is invoked as the search progresses.
func WithProgress(f func(Progress)) Option {
	return func(e *Engine) {
		e.progress = f
	}
}

// WithOrder sets the starting order instead of the identity.
func WithOrder(o Order) Option {
	return func(e *Engine) {
		e.order = o.Clone()
	}
}

// Engine searches for the palette order with the smallest compressed size.
type Engine struct {
	conv     Converter
	comp     Compressor
	locks    LockMask
	order    Order
	buf      []byte
	best     Result
	logger   *slog.Logger
	progress func(Progress)
}

// New returns an Engine for an image with the given number of colors.
func New(conv Converter, comp Compressor, colors int, locks LockMask, opts ...Option) (*Engine, error) {
	e := &Engine{
		conv:   conv,
		comp:   comp,
		locks:  locks,
		order:  Identity(colors),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}

	if len(e.order) != colors {
		return nil, errOrderLength
	}
	if !e.order.Valid() {
		return nil, errNotPermutation
	}

	e.buf = make([]byte, conv.Size())

	return e, nil
}

// Order returns a copy of the engine's current order.
func (e *Engine) Order() Order {
	return e.order.Clone()
}

// evaluate renders the current order and returns its compressed size.
func (e *Engine) evaluate() (int, error) {
	e.conv.Convert(e.buf, e.order)
	e.best.Evaluations++
	return e.comp.CompressedSize(e.buf)
}

// improve records the current order as the new best.
func (e *Engine) improve(size, current int, t float64) {
	e.best.Size = size
	copy(e.best.Order, e.order)

	e.logger.Debug("new best", "size", size, "evaluations", e.best.Evaluations)
	e.report(current, t)
}

func (e *Engine) report(current int, t float64) {
	if e.progress == nil {
		return
	}
	e.progress(Progress{
		Best:        e.best.Size,
		Current:     current,
		Evaluations: e.best.Evaluations,
		Temperature: t,
	})
}

// Run evaluates the starting order and then searches for a better one using
// the configured strategy. It returns the best order found. If ctx is
// cancelled the search stops and the best result so far is returned along
// with the context's error.
func (e *Engine) Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.Strategy == Anneal {
		if err := cfg.Anneal.Validate(); err != nil {
			return Result{}, err
		}
	}

	e.best = Result{Order: e.order.Clone()}

	size, err := e.evaluate()
	if err != nil {
		return Result{}, err
	}
	e.best.Size, e.best.InitialSize = size, size

	e.logger.Info("initial size", "size", size, "strategy", cfg.Strategy.String())

	free := e.locks.Unlocked(len(e.order))
	if len(free) < 2 {
		e.logger.Info("fewer than two unlocked colors, nothing to search", "unlocked", len(free))
		return e.result(), nil
	}

	switch cfg.Strategy {
	case HillClimb:
		err = e.hillClimb(ctx, free)
	case Anneal:
		err = e.anneal(ctx, free, cfg.Seed, cfg.Anneal)
	default:
		err = fmt.Errorf("search: unknown strategy %d", int(cfg.Strategy))
	}

	return e.result(), err
}

func (e *Engine) result() Result {
	r := e.best
	r.Order = e.best.Order.Clone()
	return r
}

// Minimize is a convenience wrapper that builds an Engine and runs it.
func Minimize(ctx context.Context, conv Converter, comp Compressor, colors int, locks LockMask, cfg Config, opts ...Option) (Result, error) {
	e, err := New(conv, comp, colors, locks, opts...)
	if err != nil {
		return Result{}, err
	}
	return e.Run(ctx, cfg)
}
