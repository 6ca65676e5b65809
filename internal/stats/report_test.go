package stats

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	t.Run("literal samples", func(t *testing.T) {
		flops := 2.0 * 2 * 2 * 2
		report, err := Summarize([]float64{1, 2, 3, 4, 5}, flops)
		require.NoError(t, err)

		assert.Equal(t, 5, report.Runs)
		assert.Equal(t, 15.0, report.Total)
		assert.Equal(t, 3.0, report.Average)
		assert.Equal(t, 3.0, report.Median)
		assert.Equal(t, 1.0, report.Min)
		assert.Equal(t, 5.0, report.Max)
		assert.InDelta(t, 2.0, report.Variance, 1e-12)

		assert.InDelta(t, 16/1e9/3, report.MedianGFLOPS(), 1e-20)
		assert.Equal(t, 16/1e9/1, report.MinGFLOPS())
		assert.InDelta(t, 16/1e9/3, report.AverageGFLOPS(), 1e-20)
	})

	t.Run("unsorted input is sorted without mutating the caller's slice", func(t *testing.T) {
		samples := []float64{5, 1, 4, 2, 3}
		report, err := Summarize(samples, 1)
		require.NoError(t, err)

		assert.Equal(t, []float64{5, 1, 4, 2, 3}, samples)
		assert.Equal(t, []float64{1, 2, 3, 4, 5}, report.Samples)
		assert.Equal(t, 3.0, report.Median)
		assert.Equal(t, 1.0, report.Min)
	})

	t.Run("even count uses the upper median", func(t *testing.T) {
		report, err := Summarize([]float64{4, 1, 3, 2}, 1)
		require.NoError(t, err)
		assert.Equal(t, 3.0, report.Median)
	})

	t.Run("population variance", func(t *testing.T) {
		report, err := Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 1)
		require.NoError(t, err)
		assert.Equal(t, 5.0, report.Average)
		assert.InDelta(t, 4.0, report.Variance, 1e-12)
	})

	t.Run("single sample", func(t *testing.T) {
		report, err := Summarize([]float64{0.25}, 8e9)
		require.NoError(t, err)
		assert.Equal(t, 0.25, report.Median)
		assert.Equal(t, 0.0, report.Variance)
		assert.Equal(t, 32.0, report.MinGFLOPS())
	})

	t.Run("no samples", func(t *testing.T) {
		_, err := Summarize(nil, 1)
		assert.ErrorIs(t, err, ErrNoSamples)
	})
}

func TestReport_WriteText(t *testing.T) {
	report, err := Summarize([]float64{1, 2, 3, 4, 5}, 16e9)
	require.NoError(t, err)
	report.Name = "Kernel CPUModel=r9 2_2_2 ThreadNum=1"
	report.Warmup = 10

	var buf bytes.Buffer
	require.NoError(t, report.WriteText(&buf))

	expected := "=== Kernel CPUModel=r9 2_2_2 ThreadNum=1 ===\n" +
		"Took 15 seconds for 5 runs. 10 warmups\n" +
		"Med 3\tMed (5.333333333333333 GFLOPS)\n" +
		"Min 1\tMax (16 GFLOPS)\n" +
		"Avg 3\tAvg (5.333333333333333 GFLOPS)\n" +
		"2 Dev\n\n"
	assert.Equal(t, expected, buf.String())
}

func TestReport_WriteJSON(t *testing.T) {
	report, err := Summarize([]float64{2, 1, 3}, 6e9)
	require.NoError(t, err)
	report.Name = "bench"

	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "bench", decoded["name"])
	assert.Equal(t, 2.0, decoded["median"])
	assert.Equal(t, 3.0, decoded["median_gflops"])
	assert.Equal(t, 6.0, decoded["min_gflops"])
	assert.Equal(t, 3.0, decoded["average_gflops"])
	assert.Len(t, decoded["samples"], 3)
}

func TestReport_WriteJSON_ZeroDuration(t *testing.T) {
	report, err := Summarize([]float64{0, 1, 2}, 6e9)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "min_gflops")
	assert.Nil(t, decoded["min_gflops"])
	assert.Equal(t, 6.0, decoded["median_gflops"])
	assert.Equal(t, 6.0, decoded["average_gflops"])
}
