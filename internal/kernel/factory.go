package kernel

import (
	"fmt"

	"github.com/fxnlabs/kernel-bench/internal/workload"
)

// Backend names accepted by New.
const (
	BackendNaive    = "naive"
	BackendBLAS     = "blas"
	BackendParallel = "parallel"
)

// Backends lists the native backends in preference order.
var Backends = []string{BackendBLAS, BackendParallel, BackendNaive}

// New creates a native kernel for the named backend.
func New(backend string, shape workload.Shape, threads int) (Kernel, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	switch backend {
	case BackendNaive:
		return NewNaive(shape), nil
	case BackendBLAS:
		return NewBLAS(shape), nil
	case BackendParallel:
		return NewParallel(shape, threads)
	default:
		return nil, fmt.Errorf("unknown kernel backend: %s", backend)
	}
}
