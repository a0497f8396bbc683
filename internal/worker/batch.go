package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dkorolev/veridict/internal/model"
)

// Checker runs one fact-check end to end
type Checker interface {
	CheckClaim(ctx context.Context, text, platform string) *model.AggregatedResult
}

// CheckJob is one text to fact-check
type CheckJob struct {
	Text     string
	Platform string
	Checker  Checker
}

// Execute runs the check
func (j *CheckJob) Execute(ctx context.Context) Result {
	return &CheckResult{
		Text:   j.Text,
		Result: j.Checker.CheckClaim(ctx, j.Text, j.Platform),
	}
}

// CheckResult pairs a text with its aggregated verdict
type CheckResult struct {
	Text   string
	Result *model.AggregatedResult
}

// GetError satisfies the pool's Result interface. Pipeline failures are
// carried inside the aggregated result, never as errors.
func (r *CheckResult) GetError() error { return nil }

// BatchProcessor fact-checks many texts concurrently
type BatchProcessor struct {
	checker     Checker
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(checker Checker, concurrency int) *BatchProcessor {
	return &BatchProcessor{checker: checker, concurrency: concurrency}
}

// ProcessTexts checks every text concurrently and returns results in
// completion order.
func (b *BatchProcessor) ProcessTexts(ctx context.Context, texts []string, platform string) []*CheckResult {
	if len(texts) == 0 {
		return []*CheckResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	// Submission runs aside collection so a batch larger than the
	// channel buffers cannot stall.
	go func() {
		for _, text := range texts {
			pool.Submit(&CheckJob{Text: text, Platform: platform, Checker: b.checker})
		}
		pool.Close()
	}()

	results := pool.Collect()
	checkResults := make([]*CheckResult, len(results))
	for i, result := range results {
		checkResults[i] = result.(*CheckResult)
	}
	return checkResults
}

// ProcessFile reads texts from a file (one per line) and checks them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath, platform string) ([]*CheckResult, error) {
	texts, err := ReadTextsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read texts: %w", err)
	}
	return b.ProcessTexts(ctx, texts, platform), nil
}

// ReadTextsFromFile reads one text per line, skipping blanks, comments
// and exact duplicates.
func ReadTextsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var texts []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			texts = append(texts, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return texts, nil
}
