package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkorolev/veridict/internal/sources"
)

var (
	checkPlatform  string
	checkJSON      bool
	checkNoCache   bool
	checkValidate  bool
	checkTimeout   time.Duration
	checkFromStdin bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <text>",
	Short: "Fact-check a piece of text against all enabled providers",
	Long: `Check runs the two-stage verification pipeline:
- Every enabled provider inspects the text for checkable factual claims
- Providers that found a claim verify it independently
- Verdicts are combined by confidence-weighted voting
- Disagreement between providers is detected and reported
- Cited sources are deduplicated and categorized

Example:
  veridict check "The Eiffel Tower is 330 meters tall"
  veridict check "Water boils at 90C at sea level" --json
  veridict check "..." --validate-sources --no-cache
  echo "some claim" | veridict check --stdin`,
	Args: cobra.ArbitraryArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkPlatform, "platform", "", "platform label recorded with the check (e.g. twitter, reddit)")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the full result as JSON")
	checkCmd.Flags().BoolVar(&checkNoCache, "no-cache", false, "bypass the result cache (force fresh verification)")
	checkCmd.Flags().BoolVar(&checkValidate, "validate-sources", false, "verify that cited source links are reachable")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 2*time.Minute, "overall check timeout")
	checkCmd.Flags().BoolVar(&checkFromStdin, "stdin", false, "read the text from standard input")
}

func runCheck(cmd *cobra.Command, args []string) error {
	text, err := checkInput(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	if checkNoCache {
		a.cfg.Cache.Enabled = false
	}

	if verbose {
		enabled := a.cfg.EnabledProviders(a.registry.IDs())
		fmt.Fprintf(os.Stderr, "Providers: %s\n", strings.Join(enabled, ", "))
		fmt.Fprintf(os.Stderr, "Cache: %v\n\n", a.cfg.Cache.Enabled)
	}

	result := a.orch.CheckClaim(ctx, text, checkPlatform)
	a.orch.WaitBackground()

	if checkJSON {
		return renderJSON(result)
	}
	renderResult(result)

	if checkValidate && len(result.Sources) > 0 {
		fmt.Println("\nValidating source links...")
		validator := sources.NewValidator(
			a.cfg.HTTP.Timeout,
			a.cfg.Concurrency.ValidationWorkers,
			a.cfg.HTTP.UserAgent,
			a.cfg.HTTP.HTTPProxy,
			a.cfg.HTTP.HTTPSProxy,
			a.cfg.HTTP.NoProxy,
		)
		statuses := validator.Validate(ctx, result.Sources)
		for _, status := range statuses {
			mark := "✓"
			note := fmt.Sprintf("HTTP %d", status.StatusCode)
			switch {
			case status.RobotsBlocked:
				mark, note = "⊘", "blocked by robots.txt"
			case status.IsDead:
				mark, note = "✗", fmt.Sprintf("dead link (HTTP %d)", status.StatusCode)
			case !status.IsAccessible:
				mark = "✗"
				if status.Error != "" {
					note = status.Error
				}
			}
			fmt.Printf("  %s %s (%s)\n", mark, status.URL, note)
		}
	}

	return nil
}

func checkInput(args []string) (string, error) {
	if checkFromStdin {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", fmt.Errorf("no text on stdin")
		}
		return text, nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("no text given; pass it as an argument or use --stdin")
	}
	return strings.Join(args, " "), nil
}
