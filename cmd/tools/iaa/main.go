// Package main provides an inter-annotator agreement tool.
//
// The iaa tool reads a whitespace-separated ratings table (one row per
// rater, one column per unit, "*" for a missing rating) and prints
// Krippendorff's alpha under the requested distance metric.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/opencatalog/arcs/internal/agreement"
)

const (
	missingMarker = "*"

	maxScannerBufferSize    = 1024
	scannerBufferMultiplier = 64

	errFmt = "%v\n"
)

var errUnknownMetric = errors.New("unknown metric")

type iaaConfig struct {
	inputPath string
	metric    string
}

func main() {
	cfg := parseFlags()

	raters, err := readRatings(cfg.inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, errFmt, err)
		os.Exit(1)
	}

	metrics, err := selectMetrics(cfg.metric)
	if err != nil {
		fmt.Fprintf(os.Stderr, errFmt, err)
		os.Exit(1)
	}

	printSummary(raters)

	for _, metric := range metrics {
		alpha, err := agreement.AlphaFromRaters(raters, metric, nil)
		if err != nil {
			fmt.Printf("  %s: undefined (%v)\n", metric.Name(), err)

			continue
		}

		fmt.Printf("  %s: %.6f\n", metric.Name(), alpha)
	}
}

func parseFlags() iaaConfig {
	cfg := iaaConfig{}

	flag.StringVar(&cfg.inputPath, "input", "", "Path to the ratings table")
	flag.StringVar(&cfg.metric, "metric", "all", "Distance metric (nominal, interval, ratio, ordinal, all)")

	flag.Parse()

	return cfg
}

func selectMetrics(name string) ([]agreement.Metric, error) {
	switch name {
	case "nominal":
		return []agreement.Metric{agreement.Nominal{}}, nil
	case "interval":
		return []agreement.Metric{agreement.Interval{}}, nil
	case "ratio":
		return []agreement.Metric{agreement.Ratio{}}, nil
	case "ordinal":
		return []agreement.Metric{agreement.Ordinal{}}, nil
	case "all":
		return []agreement.Metric{agreement.Nominal{}, agreement.Interval{}, agreement.Ratio{}, agreement.Ordinal{}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownMetric, name)
	}
}

// readRatings parses the table into per-rater judgment maps keyed by unit
// column. Missing markers produce no key, so a unit rated by fewer than two
// raters drops out of the alpha computation.
func readRatings(path string) ([]agreement.RaterJudgments, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	var raters []agreement.RaterJudgments

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, scannerBufferMultiplier*maxScannerBufferSize), maxScannerBufferSize*maxScannerBufferSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rater, err := parseRaterLine(line, len(raters)+1)
		if err != nil {
			return nil, err
		}

		raters = append(raters, rater)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	return raters, nil
}

func parseRaterLine(line string, row int) (agreement.RaterJudgments, error) {
	rater := agreement.RaterJudgments{}

	for col, field := range strings.Fields(line) {
		if field == missingMarker {
			continue
		}

		value, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d column %d: %w", row, col+1, err)
		}

		rater[fmt.Sprintf("unit%04d", col)] = value
	}

	return rater, nil
}

func printSummary(raters []agreement.RaterJudgments) {
	ratings := 0
	units := map[string]struct{}{}

	for _, rater := range raters {
		ratings += len(rater)

		for unit := range rater {
			units[unit] = struct{}{}
		}
	}

	fmt.Printf("Agreement Summary\n")
	fmt.Printf("  Raters: %d\n", len(raters))
	fmt.Printf("  Units: %d\n", len(units))
	fmt.Printf("  Ratings: %d\n", ratings)
}
