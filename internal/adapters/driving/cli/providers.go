package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List supported providers",
	Long: `Lists every supported provider and whether OAuth client credentials are
configured for it. Register the redirect URI shown here with each provider.`,
	Args: cobra.NoArgs,
	RunE: runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, _ []string) error {
	if providerRegistry == nil {
		return errors.New("provider registry not configured")
	}

	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			cmd.Printf("Redirect URI: %s\n\n", s.Redirect.URI())
		}
	}

	for _, p := range providerRegistry.List() {
		state := successStyle.Render("configured")
		if !p.IsConfigured() {
			state = warningStyle.Render("not configured")
		}
		cmd.Printf("%s %s %s\n", padRight(string(p.ID), 10), padRight(p.Name, 10), state)
		if !p.IsConfigured() {
			cmd.Println(mutedStyle.Render("           register a client at " + p.SetupHint))
		}
		if !p.SupportsRefresh {
			cmd.Println(mutedStyle.Render("           tokens do not refresh; reconnect when they expire"))
		}
	}
	return nil
}
