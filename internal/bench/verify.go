package bench

import (
	"errors"
	"fmt"
	"math"

	"github.com/fxnlabs/kernel-bench/internal/kernel"
	"github.com/fxnlabs/kernel-bench/internal/workload"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/mathext/prng"
)

// VerifyMode selects how a kernel's output is checked before benchmarking.
type VerifyMode string

const (
	VerifyOff       VerifyMode = "off"
	VerifyReference VerifyMode = "reference"
	VerifyFreivalds VerifyMode = "freivalds"
)

// freivaldsRounds bounds the false positive rate at 2^-10.
const freivaldsRounds = 10

// ErrVerification is returned when the kernel output is wrong.
var ErrVerification = errors.New("correctness check failed")

// ParseVerifyMode accepts "", "off", "reference" and "freivalds".
func ParseVerifyMode(s string) (VerifyMode, error) {
	switch VerifyMode(s) {
	case "", VerifyOff:
		return VerifyOff, nil
	case VerifyReference, VerifyFreivalds:
		return VerifyMode(s), nil
	default:
		return "", fmt.Errorf("unknown verification mode: %s", s)
	}
}

func verify(mode VerifyMode, buf *workload.Buffers, tolerance float64) error {
	switch mode {
	case VerifyReference:
		return verifyReference(buf, tolerance)
	case VerifyFreivalds:
		return verifyFreivalds(buf, tolerance, freivaldsRounds)
	default:
		return nil
	}
}

// verifyReference recomputes the product with the naive kernel and checks
// every element.
func verifyReference(buf *workload.Buffers, tolerance float64) error {
	s := buf.Shape
	ref := make([]float32, len(buf.C))
	if err := kernel.NewNaive(s).Invoke(buf.A, buf.B, ref); err != nil {
		return err
	}
	for i := 0; i < s.N; i++ {
		for j := 0; j < s.M; j++ {
			want, got := ref[i*s.M+j], buf.C[i*s.M+j]
			if math.Abs(float64(want-got)) > tolerance || math.IsNaN(float64(got)) {
				return fmt.Errorf("%w: N=%d M=%d i=%d j=%d want=%g got=%g",
					ErrVerification, s.N, s.M, i, j, want, got)
			}
		}
	}
	return nil
}

// verifyFreivalds checks A(Br) == Cr for random binary vectors r, which
// costs O(N·K + K·M) per round instead of a full multiplication. The
// tolerance is scaled by K because each entry of Cr sums K products.
func verifyFreivalds(buf *workload.Buffers, tolerance float64, rounds int) error {
	s := buf.Shape
	a := mat.NewDense(s.N, s.K, toFloat64(buf.A))
	b := mat.NewDense(s.K, s.M, toFloat64(buf.B))
	c := mat.NewDense(s.N, s.M, toFloat64(buf.C))

	src := prng.NewMT19937()
	src.Seed(workload.Seed)

	r := mat.NewVecDense(s.M, nil)
	br := mat.NewVecDense(s.K, nil)
	abr := mat.NewVecDense(s.N, nil)
	cr := mat.NewVecDense(s.N, nil)
	limit := tolerance * float64(s.K)

	for round := 0; round < rounds; round++ {
		for j := 0; j < s.M; j++ {
			r.SetVec(j, float64(src.Uint32()&1))
		}
		br.MulVec(b, r)
		abr.MulVec(a, br)
		cr.MulVec(c, r)
		for i := 0; i < s.N; i++ {
			if diff := math.Abs(abr.AtVec(i) - cr.AtVec(i)); diff > limit || math.IsNaN(diff) {
				return fmt.Errorf("%w: freivalds round %d row %d off by %g",
					ErrVerification, round, i, diff)
			}
		}
	}
	return nil
}

func toFloat64(input []float32) []float64 {
	output := make([]float64, len(input))
	for i, v := range input {
		output[i] = float64(v)
	}
	return output
}
