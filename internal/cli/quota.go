package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkorolev/veridict/internal/provider"
	"github.com/dkorolev/veridict/internal/quota"
)

// quotaCmd represents the quota command
var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show shared free-tier quota usage",
	Long: `Providers configured with a pooled credential share a daily request
budget. Quota shows today's consumption and when the budget resets.
Providers using your own API key are not subject to this limit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		pooled := false
		for _, id := range a.cfg.EnabledProviders(a.registry.IDs()) {
			if !provider.IsPooledCredential(a.cfg.Providers[id].APIKey) {
				continue
			}
			pooled = true

			decision := a.guard.CanRequest(id)
			used := decision.Total - decision.Remaining
			fmt.Printf("Provider:  %s (pooled credential)\n", id)
			fmt.Printf("Used:      %d / %d requests today\n", used, decision.Total)
			fmt.Printf("Remaining: %d\n", decision.Remaining)
			fmt.Printf("Resets:    %s\n", quota.FormatReset(decision.ResetTime, time.Now()))
			if !decision.Allowed {
				fmt.Println("Status:    daily limit reached, checks paused")
			} else if decision.NearLimit {
				fmt.Println("Status:    nearly exhausted")
			} else {
				fmt.Println("Status:    ok")
			}
			fmt.Println()
		}

		if !pooled {
			fmt.Println("No enabled provider uses a pooled credential; no quota applies.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quotaCmd)
}
