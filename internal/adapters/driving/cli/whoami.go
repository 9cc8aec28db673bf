package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami <provider>",
	Short: "Show which account a provider is connected as",
	Long: `Asks the provider which account the stored token belongs to. A rejected
token is marked stale and refreshed once before giving up.`,
	Args: cobra.ExactArgs(1),
	RunE: runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	if accountLookup == nil {
		return errors.New("account lookup not configured")
	}
	id, err := parseProvider(args[0])
	if err != nil {
		return err
	}

	account, err := accountLookup.Lookup(commandContext(cmd), id)
	if errors.Is(err, domain.ErrAuthRequired) {
		return fmt.Errorf("%s is not connected; run 'unifiedhub connect %s'", providerName(id), id)
	}
	if errors.Is(err, domain.ErrTokenRejected) {
		return fmt.Errorf("%s no longer accepts the stored token; run 'unifiedhub connect --force %s'", providerName(id), id)
	}
	if err != nil {
		return fmt.Errorf("look up %s account: %w", providerName(id), err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), account)
	return nil
}
