package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrNoSamples is returned when there is nothing to summarise.
var ErrNoSamples = errors.New("no timing samples")

// Report summarises the timed runs of one benchmark session. All times are
// in seconds.
type Report struct {
	Name     string    `json:"name"`
	Runs     int       `json:"runs"`
	Warmup   int       `json:"warmup"`
	FLOPs    float64   `json:"flops"`
	Total    float64   `json:"total"`
	Average  float64   `json:"average"`
	Median   float64   `json:"median"`
	Min      float64   `json:"min"`
	Max      float64   `json:"max"`
	Variance float64   `json:"variance"`
	Samples  []float64 `json:"samples,omitempty"`
}

// Summarize sorts a copy of samples and computes the report statistics for
// a workload of flops floating point operations.
//
// Median is sorted[len/2], the upper median for even counts; the middle
// pair is not averaged. Variance is the population variance (divisor len).
func Summarize(samples []float64, flops float64) (Report, error) {
	if len(samples) == 0 {
		return Report{}, ErrNoSamples
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	n := len(sorted)
	total := floats.Sum(sorted)
	return Report{
		Runs:     n,
		FLOPs:    flops,
		Total:    total,
		Average:  total / float64(n),
		Median:   sorted[n/2],
		Min:      sorted[0],
		Max:      sorted[n-1],
		Variance: stat.PopVariance(sorted, nil),
		Samples:  sorted,
	}, nil
}

// GFLOPS converts a duration in seconds to throughput.
func GFLOPS(flops, seconds float64) float64 {
	return flops / 1e9 / seconds
}

func (r Report) MedianGFLOPS() float64  { return GFLOPS(r.FLOPs, r.Median) }
func (r Report) MinGFLOPS() float64     { return GFLOPS(r.FLOPs, r.Min) }
func (r Report) AverageGFLOPS() float64 { return GFLOPS(r.FLOPs, r.Average) }

// WriteText writes the human readable report. The fastest run is printed
// as "Max" GFLOPS.
func (r Report) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"=== %s ===\n"+
			"Took %g seconds for %d runs. %d warmups\n"+
			"Med %g\tMed (%g GFLOPS)\n"+
			"Min %g\tMax (%g GFLOPS)\n"+
			"Avg %g\tAvg (%g GFLOPS)\n"+
			"%g Dev\n\n",
		r.Name,
		r.Total, r.Runs, r.Warmup,
		r.Median, r.MedianGFLOPS(),
		r.Min, r.MinGFLOPS(),
		r.Average, r.AverageGFLOPS(),
		r.Variance,
	)
	return err
}

type jsonReport struct {
	Report
	MedianGFLOPS  *float64 `json:"median_gflops"`
	MinGFLOPS     *float64 `json:"min_gflops"`
	AverageGFLOPS *float64 `json:"average_gflops"`
}

// finite returns nil for values JSON cannot represent. A zero duration on a
// coarse clock yields +Inf throughput.
func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// WriteJSON writes the report, including derived throughput, as indented
// JSON. Throughput that is not finite is written as null.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		Report:        r,
		MedianGFLOPS:  finite(r.MedianGFLOPS()),
		MinGFLOPS:     finite(r.MinGFLOPS()),
		AverageGFLOPS: finite(r.AverageGFLOPS()),
	})
}
