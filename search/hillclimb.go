package search

import "context"

// hillClimb makes passes over every pair of unlocked indices, keeping any
// swap that is strictly smaller than the best so far. After a kept swap the
// pass carries on from the next pair rather than starting over; another full
// pass is made whenever a pass improved on the best.
func (e *Engine) hillClimb(ctx context.Context, free []int) error {
	for improved := true; improved; {
		improved = false
		e.best.Passes++

		for a, i := range free {
			for _, j := range free[a+1:] {
				if err := ctx.Err(); err != nil {
					return err
				}

				e.order.Swap(i, j)

				size, err := e.evaluate()
				if err != nil {
					e.order.Swap(i, j)
					return err
				}

				if size < e.best.Size {
					improved = true
					e.improve(size, size, 0)
				} else {
					e.order.Swap(i, j)
				}
			}
		}

		e.logger.Debug("pass complete", "pass", e.best.Passes, "size", e.best.Size, "improved", improved)
	}
	return nil
}
