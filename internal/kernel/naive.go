package kernel

import "github.com/fxnlabs/kernel-bench/internal/workload"

// Naive is the triple loop reference kernel. It is slow and serves as the
// correctness oracle for verification.
type Naive struct {
	shape workload.Shape
}

// NewNaive returns a reference kernel bound to shape.
func NewNaive(shape workload.Shape) *Naive {
	return &Naive{shape: shape}
}

// Invoke accumulates A * B into C.
func (k *Naive) Invoke(a, b, c []float32) error {
	if err := checkOperands(k.shape, a, b, c); err != nil {
		return err
	}
	multiplyRows(k.shape, a, b, c, 0, k.shape.N)
	return nil
}

// multiplyRows accumulates rows [lo, hi) of A * B into C. The i-l-j loop
// order walks B and C contiguously.
func multiplyRows(shape workload.Shape, a, b, c []float32, lo, hi int) {
	n, m := shape.K, shape.M
	for i := lo; i < hi; i++ {
		row := c[i*m : (i+1)*m]
		for l := 0; l < n; l++ {
			av := a[i*n+l]
			bRow := b[l*m : (l+1)*m]
			for j := range row {
				row[j] += av * bRow[j]
			}
		}
	}
}
