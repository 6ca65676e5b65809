package kernel

import (
	"github.com/fxnlabs/kernel-bench/internal/workload"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// BLAS multiplies through gonum's float32 GEMM with beta = 1 so the
// product is accumulated into C.
type BLAS struct {
	shape workload.Shape
}

// NewBLAS returns a gonum backed kernel bound to shape.
func NewBLAS(shape workload.Shape) *BLAS {
	return &BLAS{shape: shape}
}

func (k *BLAS) Invoke(a, b, c []float32) error {
	if err := checkOperands(k.shape, a, b, c); err != nil {
		return err
	}
	s := k.shape
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
		blas32.General{Rows: s.N, Cols: s.K, Stride: s.K, Data: a},
		blas32.General{Rows: s.K, Cols: s.M, Stride: s.M, Data: b},
		1,
		blas32.General{Rows: s.N, Cols: s.M, Stride: s.M, Data: c},
	)
	return nil
}
