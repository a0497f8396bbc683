package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkorolev/veridict/internal/model"
)

var statsJSON bool

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show fact-check history and disagreement statistics",
	Long: `Stats summarizes past checks: verdict distribution, how often
providers disagreed, average confidence, and the most recent checks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		stats, err := a.tracker.Stats()
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}

		if statsJSON {
			return renderJSON(stats)
		}

		if stats.TotalChecks == 0 {
			fmt.Println("No checks recorded yet.")
			return nil
		}

		fmt.Printf("Total checks:       %d\n", stats.TotalChecks)
		fmt.Printf("Average confidence: %d%%\n", stats.AverageConfidence)
		fmt.Printf("Disagreement rate:  %d%%\n", stats.DisagreementRate)

		fmt.Println("\nVerdicts:")
		for _, verdict := range []model.Verdict{model.VerdictTrue, model.VerdictFalse, model.VerdictUnknown, model.VerdictNoClaim} {
			if count := stats.VerdictCounts[verdict]; count > 0 {
				fmt.Printf("  %-8s %d\n", verdict, count)
			}
		}

		if len(stats.RecentChecks) > 0 {
			fmt.Println("\nRecent:")
			shown := stats.RecentChecks
			if len(shown) > 10 {
				shown = shown[len(shown)-10:]
			}
			for i := len(shown) - 1; i >= 0; i-- {
				check := shown[i]
				when := time.UnixMilli(check.CheckedAt).Format("2006-01-02 15:04")
				flag := " "
				if check.Disagreement {
					flag = "!"
				}
				fmt.Printf("  %s %s %-8s %3d%%  %s\n", when, flag, check.Verdict, check.Confidence, check.Snippet)
			}
		}
		return nil
	},
}

var statsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the recorded check history",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.tracker.Clear(); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		fmt.Println("✓ History cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.AddCommand(statsClearCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print statistics as JSON")
}
