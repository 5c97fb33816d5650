package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/carepath/carepath/internal/model"
)

// Runner is the slice of the pipeline a batch audit needs
type Runner interface {
	RunTurn(ctx context.Context, req TurnRequest) (*model.TurnResult, error)
}

// BatchResult pairs one audited transcript with its turn outcome
type BatchResult struct {
	Index      int // 1-based position in the input order
	Transcript string
	Result     *model.TurnResult
	Err        error
}

// BatchRunner audits many transcripts concurrently. Upstream rate limiting
// lives in the shared places client, so the runner only bounds parallelism.
type BatchRunner struct {
	runner      Runner
	concurrency int
}

// NewBatchRunner creates a batch runner
func NewBatchRunner(runner Runner, concurrency int) *BatchRunner {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchRunner{
		runner:      runner,
		concurrency: concurrency,
	}
}

// ProcessTranscripts runs every transcript through the pipeline and returns
// the outcomes in input order regardless of completion order.
func (b *BatchRunner) ProcessTranscripts(ctx context.Context, transcripts []string) []BatchResult {
	if len(transcripts) == 0 {
		return []BatchResult{}
	}

	results := make([]BatchResult, len(transcripts))
	var wg sync.WaitGroup

	semaphore := make(chan struct{}, b.concurrency)

	for i, transcript := range transcripts {
		wg.Add(1)
		go func(idx int, text string) {
			defer wg.Done()

			out := BatchResult{Index: idx + 1, Transcript: text}

			select {
			case <-ctx.Done():
				out.Err = ctx.Err()
				results[idx] = out
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			// A canceled audit must not start new turns even when a
			// semaphore slot was free.
			if err := ctx.Err(); err != nil {
				out.Err = err
				results[idx] = out
				return
			}

			out.Result, out.Err = b.runner.RunTurn(ctx, TurnRequest{Transcript: text})
			results[idx] = out
		}(i, transcript)
	}

	wg.Wait()

	return results
}

// ProcessFile reads transcripts from a file and audits them concurrently
func (b *BatchRunner) ProcessFile(ctx context.Context, path string) ([]BatchResult, error) {
	transcripts, err := ReadTranscriptsFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcripts: %w", err)
	}

	return b.ProcessTranscripts(ctx, transcripts), nil
}

// ReadTranscriptsFromFile reads one transcript per line, skipping blank
// lines and # comments. Duplicate lines are kept: each line is one audit
// case even when callers repeat themselves.
func ReadTranscriptsFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var transcripts []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		transcripts = append(transcripts, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return transcripts, nil
}
