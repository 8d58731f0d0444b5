// Package main times the cohortstats CLI against an existing snapshot.
// It runs each statistic several times, treating the first successful run as cold
// and averaging the rest as warm, and writes the timings to a CSV file.
//
// Prerequisites:
// - cohortstats binary installed and available in PATH
// - A migrated and seeded SQLite snapshot
//
// Usage: go run benchmark/main.go [snapshot-db] [teams]
//
//	snapshot-db: Path to the SQLite snapshot file
//	teams:       Comma-separated team ids to scope every statistic to
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// BenchmarkResult holds the cold run and the average of the warm runs of one statistic.
type BenchmarkResult struct {
	Statistic string
	ColdTime  string
	WarmTime  string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	SnapshotPath string
	Teams        string
	Timeout      time.Duration
	Runs         int
	Statistics   map[string][]string
	Order        []string
}

func main() {
	if len(os.Args) != 3 {
		fmt.Printf("Usage: %s [snapshot-db] [teams]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		SnapshotPath: os.Args[1],
		Teams:        os.Args[2],
		Timeout:      2 * time.Minute,
		Runs:         5,
		Statistics: map[string][]string{
			"count":          {"count"},
			"count-created":  {"count", "created"},
			"activity":       {"count-with-activity", "action"},
			"age":            {"group", "age"},
			"follow":         {"group", "follow-duration"},
			"categories":     {"group", "action-category"},
			"drill-all":      {"drill", "all"},
			"average-follow": {"average", "follow-duration"},
		},
		Order: []string{"count", "count-created", "activity", "age", "follow", "categories", "drill-all", "average-follow"},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the cohortstats binary and the snapshot exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("cohortstats"); err != nil {
		return fmt.Errorf("cohortstats binary not found in PATH")
	}
	if _, err := os.Stat(config.SnapshotPath); os.IsNotExist(err) {
		return fmt.Errorf("snapshot not found at %s", config.SnapshotPath)
	}
	return nil
}

// runBenchmarks executes every configured statistic
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d statistics, %v timeout, %d runs each\n",
		len(config.Order), config.Timeout, config.Runs)

	for _, name := range config.Order {
		fmt.Printf("Running %s\n", name)
		cold, warm := runBenchmark(config, config.Statistics[name])

		coldTime := "TIMEOUT"
		if cold > 0 {
			coldTime = fmt.Sprintf("%.3fs", cold)
		}
		warmTime := "TIMEOUT"
		if len(warm) > 0 {
			var sum float64
			for _, t := range warm {
				sum += t
			}
			warmTime = fmt.Sprintf("%.3fs", sum/float64(len(warm)))
		}

		fmt.Printf("  Cold time: %s, Warm average: %s\n", coldTime, warmTime)
		results = append(results, BenchmarkResult{Statistic: name, ColdTime: coldTime, WarmTime: warmTime})
	}

	return results
}

// runBenchmark executes one statistic several times and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, statistic []string) (coldTime float64, warmTimes []float64) {
	args := append([]string{}, statistic...)
	args = append(args, "--teams", config.Teams, "--output", "json", "--from", "1 year ago", "--to", "now")

	var times []float64
	for run := 1; run <= config.Runs; run++ {
		start := time.Now()

		cmd := exec.Command("cohortstats", args...)
		cmd.Env = append(os.Environ(),
			"COHORTSTATS_BACKEND=sqlite",
			"COHORTSTATS_DB_CONNECT="+config.SnapshotPath,
		)

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.Output()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			// Timeout - don't add to times
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output is a JSON report
func isSuccess(output []byte) bool {
	outputStr := strings.TrimSpace(string(output))
	return strings.HasPrefix(outputStr, "{") && strings.Contains(outputStr, `"header"`)
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/cohortstats_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"statistic", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Statistic, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %-15s: Cold: %s, Warm: %s\n", result.Statistic, result.ColdTime, result.WarmTime)
	}
}
