package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkorolev/veridict/internal/worker"
)

var (
	batchConcurrency int
	batchPlatform    string
	batchOutput      string
	batchTimeout     time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Fact-check multiple texts from a file in parallel",
	Long: `Batch verifies many texts concurrently:
- Read texts from the input file (one per line, # starts a comment)
- Check texts in parallel with a bounded worker pool
- Identical texts are checked once and served from cache
- Optionally write the full results to a JSON file

Example:
  veridict batch claims.txt
  veridict batch claims.txt --concurrency 8 --output results.json
  veridict batch claims.txt --platform reddit`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "number of concurrent checks (default from config)")
	batchCmd.Flags().StringVar(&batchPlatform, "platform", "", "platform label recorded with each check")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "write full results to this JSON file")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}

	concurrency := batchConcurrency
	if concurrency <= 0 {
		concurrency = a.cfg.Concurrency.BatchWorkers
	}

	texts, err := worker.ReadTextsFromFile(file)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Checking %d texts with %d workers...\n\n", len(texts), concurrency)

	processor := worker.NewBatchProcessor(a.orch, concurrency)
	results := processor.ProcessTexts(ctx, texts, batchPlatform)
	a.orch.WaitBackground()

	counts := map[string]int{}
	for _, r := range results {
		counts[string(r.Result.Verdict)]++
		fmt.Printf("%-8s %3d%%  %s\n", r.Result.Verdict, r.Result.Confidence, truncate(r.Text, 60))
	}

	fmt.Fprintf(os.Stderr, "\nDone: %d texts", len(results))
	for _, verdict := range []string{"true", "false", "unknown", "no_claim"} {
		if counts[verdict] > 0 {
			fmt.Fprintf(os.Stderr, ", %d %s", counts[verdict], verdict)
		}
	}
	fmt.Fprintln(os.Stderr)

	if batchOutput != "" {
		if err := writeBatchResults(batchOutput, results); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Results written to %s\n", batchOutput)
	}

	return nil
}

func writeBatchResults(path string, results []*worker.CheckResult) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// truncate caps s at max runes for single-line display. Counting runes
// keeps multi-byte text from being cut mid-character.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
