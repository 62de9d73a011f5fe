package search

import (
	"context"
	"errors"
	"math"
	"math/rand"
)

var errAnnealParams = errors.New("search: invalid annealing parameters")

// Default annealing parameters
const (
	DefaultStartTemp  = 1000.0
	DefaultCooling    = 0.99
	DefaultMinTemp    = 0.1
	DefaultIterations = 20
)

// AnnealParams controls the cooling schedule of Anneal.
type AnnealParams struct {
	// StartTemp is the initial temperature
	StartTemp float64
	// Cooling multiplies the temperature after every step
	Cooling float64
	// MinTemp stops the search once the temperature falls to it
	MinTemp float64
	// Iterations is the number of swaps tried at each temperature
	Iterations int
}

// DefaultAnnealParams returns the default cooling schedule.
func DefaultAnnealParams() AnnealParams {
	return AnnealParams{
		StartTemp:  DefaultStartTemp,
		Cooling:    DefaultCooling,
		MinTemp:    DefaultMinTemp,
		Iterations: DefaultIterations,
	}
}

// Validate checks the schedule terminates and never divides by a zero
// temperature.
func (p AnnealParams) Validate() error {
	switch {
	case !(p.StartTemp > 0) || math.IsInf(p.StartTemp, 0):
		return errAnnealParams
	case !(p.MinTemp > 0):
		return errAnnealParams
	case !(p.Cooling > 0 && p.Cooling < 1):
		return errAnnealParams
	case p.Iterations < 1:
		return errAnnealParams
	}
	return nil
}

// Steps returns the number of temperature steps the schedule makes, counted
// by running the cooling loop itself. This is roughly
// ceil(log(MinTemp/StartTemp) / log(Cooling)) but rounding can add a step
// when MinTemp is an exact power of Cooling away from StartTemp. It assumes p
// is valid.
func (p AnnealParams) Steps() int {
	n := 0
	for t := p.StartTemp; t > p.MinTemp; t *= p.Cooling {
		n++
	}
	return n
}

// anneal runs simulated annealing over the unlocked indices and leaves the
// engine holding the best order seen, which need not be the last accepted.
func (e *Engine) anneal(ctx context.Context, free []int, seed int64, p AnnealParams) error {
	rng := rand.New(rand.NewSource(seed))
	current := e.best.Size

	defer func() {
		copy(e.order, e.best.Order)
	}()

	for t := p.StartTemp; t > p.MinTemp; t *= p.Cooling {
		for k := 0; k < p.Iterations; k++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			i, j := pick(rng, free)
			e.order.Swap(i, j)

			size, err := e.evaluate()
			if err != nil {
				e.order.Swap(i, j)
				return err
			}

			if size < current || rng.Float64() < math.Exp(-float64(size-current)/t) {
				current = size
				if size < e.best.Size {
					e.improve(size, current, t)
				}
			} else {
				e.order.Swap(i, j)
			}
		}

		e.best.Steps++
		e.report(current, t*p.Cooling)
	}

	e.logger.Debug("annealing complete", "steps", e.best.Steps, "size", e.best.Size)

	return nil
}

// pick returns two distinct indices drawn uniformly from free, which must
// hold at least two entries.
func pick(rng *rand.Rand, free []int) (int, int) {
	a := rng.Intn(len(free))
	b := rng.Intn(len(free) - 1)
	if b >= a {
		b++
	}
	return free[a], free[b]
}
