package kernel

import (
	"fmt"

	"github.com/fxnlabs/kernel-bench/internal/workload"
	"golang.org/x/sync/errgroup"
)

// Parallel splits the rows of C into bands and multiplies them on up to
// Threads goroutines. Bands never overlap, so no synchronisation on C is
// needed.
type Parallel struct {
	shape   workload.Shape
	threads int
}

// NewParallel returns a row-band parallel kernel bound to shape.
func NewParallel(shape workload.Shape, threads int) (*Parallel, error) {
	if threads <= 0 {
		return nil, fmt.Errorf("thread count must be positive, got %d", threads)
	}
	return &Parallel{shape: shape, threads: threads}, nil
}

// Threads returns the configured worker limit.
func (k *Parallel) Threads() int {
	return k.threads
}

func (k *Parallel) Invoke(a, b, c []float32) error {
	if err := checkOperands(k.shape, a, b, c); err != nil {
		return err
	}

	rows := k.shape.N
	bands := min(k.threads, rows)
	step := (rows + bands - 1) / bands

	var g errgroup.Group
	g.SetLimit(k.threads)
	for lo := 0; lo < rows; lo += step {
		hi := min(lo+step, rows)
		g.Go(func() error {
			multiplyRows(k.shape, a, b, c, lo, hi)
			return nil
		})
	}
	return g.Wait()
}
