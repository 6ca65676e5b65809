package merge

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fxnlabs/kernel-bench/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeReport(t *testing.T, dir, name string, samples []float64, flops float64) {
	t.Helper()
	report, err := stats.Summarize(samples, flops)
	require.NoError(t, err)
	report.Name = name

	var buf bytes.Buffer
	require.NoError(t, report.WriteText(&buf))
	writeFile(t, dir, name, buf.String())
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, "2_2_2.txt", []float64{1, 2, 3, 4, 5}, 16e9)
	writeReport(t, dir, "10_10_10.txt", []float64{2}, 4e9)
	writeFile(t, dir, "1_1_1.txt", "Med 1\tMed (199 GFLOPS)\nMin 1\tMax (250 GFLOPS)\n")
	writeFile(t, dir, "notes.txt", "Med (1 GFLOPS)\nMax (2 GFLOPS)\nAvg (3 GFLOPS)\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "3_3_3"), 0o755))

	rows, err := Collect(dir, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "10_10_10.txt", rows[0].Filename)
	assert.Equal(t, 2.0, rows[0].Med)
	assert.Equal(t, 2.0, rows[0].Max)
	assert.Equal(t, 2.0, rows[0].Avg)

	assert.Equal(t, "2_2_2.txt", rows[1].Filename)
	assert.InDelta(t, 16.0/3, rows[1].Med, 1e-12)
	assert.Equal(t, 16.0, rows[1].Max)
	assert.InDelta(t, 16.0/3, rows[1].Avg, 1e-12)
}

func TestCollect_FirstFigureWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "7.txt",
		"Med 1\tMed (10 GFLOPS)\nMin 1\tMax (20 GFLOPS)\nAvg 1\tAvg (30 GFLOPS)\n"+
			"Med 1\tMed (11 GFLOPS)\nMin 1\tMax (21 GFLOPS)\nAvg 1\tAvg (31 GFLOPS)\n")

	rows, err := Collect(dir, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Row{Filename: "7.txt", Med: 10, Max: 20, Avg: 30}, rows[0])
}

func TestCollect_MissingDirectory(t *testing.T) {
	_, err := Collect(filepath.Join(t.TempDir(), "missing"), zap.NewNop())
	assert.ErrorContains(t, err, "failed to read report directory")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []Row{
		{Filename: "1_1_1.txt", Med: 199, Max: 250, Avg: 180.5},
		{Filename: "2_2_2.txt", Med: 1.5e-3, Max: 2, Avg: 1},
	})
	require.NoError(t, err)

	expected := "Filename,Med,Max,Avg\n" +
		"1_1_1.txt,199,250,180.5\n" +
		"2_2_2.txt,0.0015,2,1\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "Filename,Med,Max,Avg\n", buf.String())
}

func TestRun(t *testing.T) {
	model := filepath.Join(t.TempDir(), "llama3")
	dir := filepath.Join(model, "r9", "16")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	writeFile(t, dir, "1_1_1.txt", "Med 1\tMed (199 GFLOPS)\nMin 1\tMax (250 GFLOPS)\nAvg 1\tAvg (180 GFLOPS)\n")

	path, err := Run(model, "r9", 16, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "merge_r9_16.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Filename,Med,Max,Avg\n1_1_1.txt,199,250,180\n", string(data))

	// The CSV itself is not picked up on a second merge.
	_, err = Run(model, "r9", 16, zap.NewNop())
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Filename,Med,Max,Avg\n1_1_1.txt,199,250,180\n", string(data))
}

func TestRun_MissingDirectory(t *testing.T) {
	_, err := Run(t.TempDir(), "r9", 16, zap.NewNop())
	assert.ErrorContains(t, err, "does not exist")
}
