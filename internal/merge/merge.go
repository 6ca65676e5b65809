// Package merge collects GFLOPS figures from saved text reports into CSV.
package merge

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var (
	medPattern = regexp.MustCompile(`Med.*\(([0-9.eE+-]+)\sGFLOPS\)`)
	maxPattern = regexp.MustCompile(`Max.*\(([0-9.eE+-]+)\sGFLOPS\)`)
	avgPattern = regexp.MustCompile(`Avg.*\(([0-9.eE+-]+)\sGFLOPS\)`)
)

// Header is the first CSV record written by WriteCSV.
var Header = []string{"Filename", "Med", "Max", "Avg"}

// Row holds the figures scraped from one report file.
type Row struct {
	Filename string
	Med      float64
	Max      float64
	Avg      float64
}

// FileName returns the CSV file name for a cpu and thread count.
func FileName(cpu string, threads int) string {
	return fmt.Sprintf("merge_%s_%d.csv", cpu, threads)
}

// Collect scans the regular files in dir whose name starts with a digit.
// Files missing any of the three figures are skipped with a warning.
// Rows are sorted by file name.
func Collect(dir string, log *zap.Logger) ([]Row, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read report directory: %w", err)
	}

	var rows []Row
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || name == "" || name[0] < '0' || name[0] > '9' {
			continue
		}
		row, ok, err := extract(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if !ok {
			log.Warn("Could not extract all metrics", zap.String("file", name))
			continue
		}
		row.Filename = name
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b Row) int { return strings.Compare(a.Filename, b.Filename) })
	return rows, nil
}

// extract returns the first Med, Max and Avg figures in the file.
func extract(path string) (Row, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return Row{}, false, fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()

	var row Row
	var haveMed, haveMax, haveAvg bool
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !haveMed {
			row.Med, haveMed = match(medPattern, line)
		}
		if !haveMax {
			row.Max, haveMax = match(maxPattern, line)
		}
		if !haveAvg {
			row.Avg, haveAvg = match(avgPattern, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return Row{}, false, fmt.Errorf("failed to read report %s: %w", path, err)
	}
	return row, haveMed && haveMax && haveAvg, nil
}

func match(re *regexp.Regexp, line string) (float64, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// WriteCSV writes the header followed by one record per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{r.Filename, formatFloat(r.Med), formatFloat(r.Max), formatFloat(r.Avg)}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Run merges the reports in <model>/<cpu>/<threads> into the CSV file named
// by FileName inside that directory and returns its path.
func Run(model, cpu string, threads int, log *zap.Logger) (string, error) {
	dir := filepath.Join(model, cpu, strconv.Itoa(threads))
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("directory %s does not exist: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dir)
	}

	rows, err := Collect(dir, log)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(cpu, threads))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	log.Info("Merged reports", zap.String("file", path), zap.Int("rows", len(rows)))
	return path, nil
}
