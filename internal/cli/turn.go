package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/carepath/carepath/internal/pipeline"
)

var (
	turnLat         float64
	turnLng         float64
	turnQ0          string
	turnQ1          string
	turnRoadAddress string
	turnLotAddress  string
	turnOut         string
	turnTimeout     time.Duration
)

// turnCmd represents the turn command
var turnCmd = &cobra.Command{
	Use:   "turn <transcript>",
	Short: "Run a single voice turn and print the placement result",
	Long: `Turn runs one transcript through the full engine:
- Classify the urgency tier from the symptom keywords
- Resolve the caller's administrative region
- Pull candidate places from the baseline dataset and live channels
- Apply the emergency category gate and rank the top 5

The result is printed as JSON.

Example:
  carepath turn "숨이 안 쉬어지고 가슴이 아파요"
  carepath turn "열이 나요" --lat 37.5725 --lng 126.9790
  carepath turn "손을 베였어요" --q0 서울 --q1 마포구 --out result.json`,
	Args: cobra.ExactArgs(1),
	RunE: runTurn,
}

func init() {
	rootCmd.AddCommand(turnCmd)

	// Location flags
	turnCmd.Flags().Float64Var(&turnLat, "lat", 0, "caller latitude (WGS84)")
	turnCmd.Flags().Float64Var(&turnLng, "lng", 0, "caller longitude (WGS84)")
	turnCmd.Flags().StringVar(&turnQ0, "q0", "", "province or metropolitan city (e.g. 서울, 경기도)")
	turnCmd.Flags().StringVar(&turnQ1, "q1", "", "district (e.g. 종로구, 성남시 분당구)")
	turnCmd.Flags().StringVar(&turnRoadAddress, "road-address", "", "road address to resolve the region from")
	turnCmd.Flags().StringVar(&turnLotAddress, "lot-address", "", "lot address fallback")

	// Output flags
	turnCmd.Flags().StringVar(&turnOut, "out", "", "write the result JSON to a file instead of stdout")
	turnCmd.Flags().DurationVar(&turnTimeout, "timeout", 15*time.Second, "overall turn timeout")
}

func runTurn(cmd *cobra.Command, args []string) error {
	transcript := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), turnTimeout)
	defer cancel()

	engine, placesClient, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Transcript: %s\n", transcript)
		fmt.Fprintf(os.Stderr, "Live channels: %v\n", placesClient.Configured())
		fmt.Fprintln(os.Stderr)
	}

	req := pipeline.TurnRequest{
		Transcript:  transcript,
		Province:    turnQ0,
		District:    turnQ1,
		RoadAddress: turnRoadAddress,
		LotAddress:  turnLotAddress,
	}
	if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
		req.Lat = &turnLat
		req.Lng = &turnLng
	}

	result, err := engine.RunTurn(ctx, req)
	if err != nil {
		return fmt.Errorf("turn failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Triage tier: %s\n", result.Tier)
		if len(result.MatchedRules) > 0 {
			fmt.Fprintf(os.Stderr, "✓ Matched rules: %s\n", strings.Join(result.MatchedRules, ", "))
		}
		fmt.Fprintf(os.Stderr, "✓ Ranked %d places\n", len(result.Top5))
		if result.SafeMode.NoResult {
			fmt.Fprintf(os.Stderr, "✗ Safe mode removed every candidate\n")
		}
		fmt.Fprintln(os.Stderr)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if turnOut != "" {
		if err := os.WriteFile(turnOut, data, 0o644); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", turnOut)
		}
		return nil
	}

	fmt.Println(string(data))
	return nil
}
