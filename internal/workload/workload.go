package workload

import (
	"fmt"

	"gonum.org/v1/gonum/mathext/prng"
)

// Seed is the fixed generator seed. Every benchmark of a given shape sees
// the same inputs.
const Seed = 137

// Shape holds the dimensions of C = A * B where A is N×K, B is K×M and C is N×M.
type Shape struct {
	N int
	K int
	M int
}

// Validate reports an error for non-positive dimensions.
func (s Shape) Validate() error {
	if s.N <= 0 || s.K <= 0 || s.M <= 0 {
		return fmt.Errorf("invalid shape %dx%dx%d: dimensions must be positive", s.N, s.K, s.M)
	}
	return nil
}

// FLOPs returns the theoretical floating point operation count of one
// multiplication (2·N·K·M).
func (s Shape) FLOPs() float64 {
	return 2.0 * float64(s.N) * float64(s.K) * float64(s.M)
}

func (s Shape) String() string {
	return fmt.Sprintf("%d_%d_%d", s.N, s.K, s.M)
}

// Buffers are the dense row-major float32 operands of one benchmark.
// A and B are read-only once generated; C is the kernel's output.
type Buffers struct {
	Shape Shape
	A     []float32
	B     []float32
	C     []float32
}

// Generate allocates the buffers for shape and fills A then B with uniform
// values in [0,1) drawn from an MT19937 source seeded with seed. C is zeroed.
func Generate(shape Shape, seed uint64) *Buffers {
	src := prng.NewMT19937()
	src.Seed(seed)

	buf := &Buffers{
		Shape: shape,
		A:     make([]float32, shape.N*shape.K),
		B:     make([]float32, shape.K*shape.M),
		C:     make([]float32, shape.N*shape.M),
	}
	fill(buf.A, src)
	fill(buf.B, src)
	return buf
}

// fill uses the top 24 bits of each draw so the value is exact in float32
// and strictly below 1.
func fill(dst []float32, src *prng.MT19937) {
	for i := range dst {
		dst[i] = float32(src.Uint32()>>8) / (1 << 24)
	}
}

// Reset zeroes C in place.
func (b *Buffers) Reset() {
	clear(b.C)
}

// Bytes returns the memory held by the three buffers.
func (b *Buffers) Bytes() int64 {
	return int64(len(b.A)+len(b.B)+len(b.C)) * 4
}
