package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/carepath/carepath/internal/model"
	"github.com/carepath/carepath/internal/pipeline"
)

var (
	triageConcurrency int
	triageOut         string
	triageTimeout     time.Duration
)

// triageCmd represents the triage command
var triageCmd = &cobra.Command{
	Use:   "triage <file>",
	Short: "Audit a file of transcripts in parallel",
	Long: `Triage runs every transcript in a file through the engine:
- Read transcripts from the input file (one per line)
- Process them in parallel with a configurable worker count
- Report the tier, matched rules, and top placement per transcript
- Summarize the tier distribution and safe-mode outcomes

Transcripts carry no location, so the audit exercises the configured
default region and the fallback placements.

Example:
  carepath triage transcripts.txt
  carepath triage transcripts.txt --concurrency 8 --out audit.json
  carepath triage transcripts.txt --timeout 5m`,
	Args: cobra.ExactArgs(1),
	RunE: runTriage,
}

func init() {
	rootCmd.AddCommand(triageCmd)

	triageCmd.Flags().IntVar(&triageConcurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	triageCmd.Flags().StringVar(&triageOut, "out", "", "write per-transcript results as a JSON array")
	triageCmd.Flags().DurationVar(&triageTimeout, "timeout", 10*time.Minute, "total timeout for the audit")
}

// auditRow is the JSON shape written by --out
type auditRow struct {
	Index      int               `json:"index"`
	Transcript string            `json:"transcript"`
	Result     *model.TurnResult `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func runTriage(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), triageTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Carepath Triage Audit\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", triageConcurrency)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", triageTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	engine, placesClient, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	if !placesClient.Configured() {
		fmt.Fprintf(os.Stderr, "  Live channels: disabled (no service key)\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	runner := pipeline.NewBatchRunner(engine, triageConcurrency)

	fmt.Fprintf(os.Stderr, "⚙️  Reading transcripts from file...\n")
	results, err := runner.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Audited %d transcripts with %d workers\n", len(results), triageConcurrency)
	fmt.Fprintf(os.Stderr, "\n")

	tierCounts := make(map[model.UrgencyTier]int)
	failureCount := 0
	noResultCount := 0

	for _, r := range results {
		if r.Err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ #%d %s: %v\n", r.Index, truncate(r.Transcript, 40), r.Err)
			continue
		}

		tierCounts[r.Result.Tier]++
		if r.Result.SafeMode.NoResult {
			noResultCount++
		}

		top := "-"
		if len(r.Result.Top5) > 0 {
			top = r.Result.Top5[0].Name
		}
		fmt.Fprintf(os.Stderr, "✓ #%d [%s] %s → %s\n", r.Index, r.Result.Tier, truncate(r.Transcript, 40), top)
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Audit Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:       %d transcripts\n", len(results))
	fmt.Fprintf(os.Stderr, "  HIGH:        %d\n", tierCounts[model.TierHigh])
	fmt.Fprintf(os.Stderr, "  MODERATE:    %d\n", tierCounts[model.TierModerate])
	fmt.Fprintf(os.Stderr, "  LOW:         %d\n", tierCounts[model.TierLow])
	fmt.Fprintf(os.Stderr, "  No result:   %d\n", noResultCount)
	fmt.Fprintf(os.Stderr, "  Failures:    %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "\n")

	if triageOut != "" {
		rows := make([]auditRow, 0, len(results))
		for _, r := range results {
			row := auditRow{
				Index:      r.Index,
				Transcript: r.Transcript,
				Result:     r.Result,
			}
			if r.Err != nil {
				row.Error = r.Err.Error()
			}
			rows = append(rows, row)
		}

		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("encode audit: %w", err)
		}
		if err := os.WriteFile(triageOut, data, 0o644); err != nil {
			return fmt.Errorf("write audit: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", triageOut)
	}

	return nil
}

// truncate shortens a transcript for one-line audit output. Counted in
// runes, not bytes, so Hangul does not get split mid-character.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
