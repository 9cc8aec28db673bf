// Package cli provides the unifiedhub command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
	"github.com/unifiedhub/unifiedhub/internal/core/ports/driving"
	"github.com/unifiedhub/unifiedhub/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services holds the driving ports the commands use.
type Services struct {
	Sessions  driving.SessionDirectory
	Providers driving.ProviderRegistry
	Settings  driving.SettingsService
	Accounts  driving.AccountLookup
}

var (
	sessions         driving.SessionDirectory
	providerRegistry driving.ProviderRegistry
	settingsService  driving.SettingsService
	accountLookup    driving.AccountLookup
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "unifiedhub",
	Short: "Connect UnifiedHub to your Google, Discord and GitHub accounts",
	Long: `UnifiedHub keeps an authenticated session per account provider.

Connecting opens your browser on the provider's consent page; the
authorization is captured on http://localhost:8080/callback and the
resulting tokens are stored under ~/.unifiedhub. Feature workers then
obtain fresh access tokens without further prompts.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices sets the services used by the commands.
func SetServices(s *Services) {
	sessions = s.Sessions
	providerRegistry = s.Providers
	settingsService = s.Settings
	accountLookup = s.Accounts
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// parseProvider converts a command argument into a provider ID.
func parseProvider(arg string) (domain.ProviderID, error) {
	id, err := domain.ParseProviderID(arg)
	if err != nil {
		return "", fmt.Errorf("%w: %q (known: %s)", err, arg, knownProviderList())
	}
	return id, nil
}

func knownProviderList() string {
	names := make([]string, len(domain.KnownProviders))
	for i, id := range domain.KnownProviders {
		names[i] = string(id)
	}
	return strings.Join(names, ", ")
}

// providerName returns the display name, falling back to the ID.
func providerName(id domain.ProviderID) string {
	if providerRegistry != nil {
		if p, err := providerRegistry.Get(id); err == nil {
			return p.Name
		}
	}
	return string(id)
}

func requireSessions() error {
	if sessions == nil {
		return errors.New("session directory not configured")
	}
	return nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute (tests).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
