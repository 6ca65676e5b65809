package kernel

import (
	"fmt"

	"github.com/fxnlabs/kernel-bench/internal/workload"
)

// Kernel is a compiled matrix multiplication entry point bound to one shape.
//
// Invoke computes C += A * B where A is N×K, B is K×M and C is N×M, all in
// row-major order. Kernels accumulate into C, so callers must zero C
// between invocations when they expect C = A * B.
//
// Implementations own any internal parallelism. A returned error is a
// kernel execution fault; the harness does not retry it.
type Kernel interface {
	Invoke(a, b, c []float32) error
}

// Func adapts an ordinary function to the Kernel interface.
type Func func(a, b, c []float32) error

// Invoke calls f(a, b, c).
func (f Func) Invoke(a, b, c []float32) error {
	return f(a, b, c)
}

// checkOperands validates operand lengths against the bound shape.
func checkOperands(shape workload.Shape, a, b, c []float32) error {
	if len(a) != shape.N*shape.K {
		return fmt.Errorf("matrix A size mismatch: expected %d, got %d", shape.N*shape.K, len(a))
	}
	if len(b) != shape.K*shape.M {
		return fmt.Errorf("matrix B size mismatch: expected %d, got %d", shape.K*shape.M, len(b))
	}
	if len(c) != shape.N*shape.M {
		return fmt.Errorf("matrix C size mismatch: expected %d, got %d", shape.N*shape.M, len(c))
	}
	return nil
}

// Bind wraps k so every invocation is checked against shape before it
// reaches k. It is used for kernels loaded from foreign artifacts, which
// would otherwise read out of bounds on a shape mismatch.
func Bind(shape workload.Shape, k Kernel) Kernel {
	return Func(func(a, b, c []float32) error {
		if err := checkOperands(shape, a, b, c); err != nil {
			return err
		}
		return k.Invoke(a, b, c)
	})
}
