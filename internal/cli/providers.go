package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkorolev/veridict/internal/provider"
)

// providersCmd represents the providers command
var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List and test verification providers",
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List providers and their configuration state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		for _, p := range a.registry.All() {
			settings := a.cfg.Providers[p.ID()]
			state := "disabled"
			if settings.Enabled && settings.APIKey != "" {
				if provider.IsPooledCredential(settings.APIKey) {
					state = "enabled (pooled credential, shared quota)"
				} else {
					state = "enabled (own API key)"
				}
			} else if settings.Enabled {
				state = "enabled but no API key"
			}
			fmt.Printf("%-12s %-20s %s\n", p.ID(), p.DisplayName(), state)
		}
		return nil
	},
}

var providersTestCmd = &cobra.Command{
	Use:   "test [provider]",
	Short: "Test provider credentials",
	Long: `Test checks that each enabled provider accepts its configured
credential. Pass a provider id to test just that one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		ids := a.cfg.EnabledProviders(a.registry.IDs())
		if len(args) == 1 {
			if _, ok := a.registry.Get(args[0]); !ok {
				return fmt.Errorf("unknown provider: %s", args[0])
			}
			ids = []string{args[0]}
		}
		if len(ids) == 0 {
			fmt.Println("No providers enabled.")
			return nil
		}

		failures := 0
		for _, id := range ids {
			p, _ := a.registry.Get(id)
			key := a.cfg.Providers[id].APIKey
			if key == "" {
				fmt.Printf("✗ %s: no API key configured\n", id)
				failures++
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			err := p.TestCredential(ctx, key)
			cancel()

			if err != nil {
				fmt.Printf("✗ %s: %v\n", id, err)
				failures++
			} else {
				fmt.Printf("✓ %s: credential accepted\n", id)
			}
		}

		if failures > 0 {
			return fmt.Errorf("%d provider(s) failed", failures)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersTestCmd)
}
