package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxnlabs/kernel-bench/internal/kernel"
	"github.com/fxnlabs/kernel-bench/internal/workload"
	"go.uber.org/zap"
)

const (
	DefaultWarmup    = 10
	DefaultRuns      = 100
	DefaultTolerance = 0.1
)

// ErrKernelFault wraps any error returned by the kernel during a session.
var ErrKernelFault = errors.New("kernel execution fault")

// Options control one benchmark session.
type Options struct {
	// Warmup invocations run before measurement and are never timed.
	Warmup int
	// Runs is the number of timed invocations.
	Runs int
	// Verify selects an optional correctness check run before warmup.
	Verify VerifyMode
	// Tolerance is the maximum absolute error accepted by verification.
	Tolerance float64
}

// DefaultOptions returns 10 warmup runs, 100 timed runs and no verification.
func DefaultOptions() Options {
	return Options{
		Warmup:    DefaultWarmup,
		Runs:      DefaultRuns,
		Verify:    VerifyOff,
		Tolerance: DefaultTolerance,
	}
}

// Validate checks the options for a runnable session.
func (o Options) Validate() error {
	if o.Warmup < 0 {
		return fmt.Errorf("warmup count must not be negative, got %d", o.Warmup)
	}
	if o.Runs <= 0 {
		return fmt.Errorf("run count must be positive, got %d", o.Runs)
	}
	mode, err := ParseVerifyMode(string(o.Verify))
	if err != nil {
		return err
	}
	if mode != VerifyOff && o.Tolerance <= 0 {
		return fmt.Errorf("verification tolerance must be positive, got %g", o.Tolerance)
	}
	return nil
}

// Observer receives the duration of every timed invocation.
type Observer interface {
	Observe(d time.Duration)
}

// Result holds the timing samples of a session in collection order.
type Result struct {
	// Samples are elapsed seconds, one per timed invocation.
	Samples []float64
	// Invocations counts every kernel call, verification and warmup included.
	Invocations int
}

// Executor runs the warmup and measurement protocol against a kernel.
type Executor struct {
	opts     Options
	log      *zap.Logger
	observer Observer
}

// NewExecutor validates opts and returns an executor. observer may be nil.
// An empty Verify means VerifyOff.
func NewExecutor(opts Options, observer Observer, log *zap.Logger) (*Executor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.Verify, _ = ParseVerifyMode(string(opts.Verify))
	return &Executor{opts: opts, log: log.Named("executor"), observer: observer}, nil
}

// Options returns the session options.
func (e *Executor) Options() Options {
	return e.opts
}

// Run benchmarks k over buf. C is zeroed before the first call and after
// every call, so each invocation starts from an all-zero output. The first
// kernel error aborts the session; it is never retried.
//
// ctx is checked between invocations only; a hung kernel blocks Run.
func (e *Executor) Run(ctx context.Context, k kernel.Kernel, buf *workload.Buffers) (Result, error) {
	var res Result
	buf.Reset()

	if e.opts.Verify != VerifyOff {
		res.Invocations++
		if err := k.Invoke(buf.A, buf.B, buf.C); err != nil {
			return res, fmt.Errorf("%w: verification run: %w", ErrKernelFault, err)
		}
		if err := verify(e.opts.Verify, buf, e.opts.Tolerance); err != nil {
			return res, err
		}
		buf.Reset()
		e.log.Info("Correctness check passed", zap.String("mode", string(e.opts.Verify)))
	}

	e.log.Debug("Warming up", zap.Int("iterations", e.opts.Warmup))
	for i := 0; i < e.opts.Warmup; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Invocations++
		if err := k.Invoke(buf.A, buf.B, buf.C); err != nil {
			return res, fmt.Errorf("%w: warmup %d: %w", ErrKernelFault, i, err)
		}
		buf.Reset()
	}

	e.log.Debug("Measuring", zap.Int("iterations", e.opts.Runs))
	res.Samples = make([]float64, 0, e.opts.Runs)
	for i := 0; i < e.opts.Runs; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Invocations++
		start := time.Now()
		err := k.Invoke(buf.A, buf.B, buf.C)
		elapsed := time.Since(start)
		if err != nil {
			return res, fmt.Errorf("%w: run %d: %w", ErrKernelFault, i, err)
		}
		res.Samples = append(res.Samples, elapsed.Seconds())
		if e.observer != nil {
			e.observer.Observe(elapsed)
		}
		buf.Reset()
	}
	return res, nil
}
