package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

var tokenCmd = &cobra.Command{
	Use:   "token <provider>",
	Short: "Print a current access token",
	Long: `Prints an access token for the provider, refreshing it first if it is
about to expire. Useful for scripting calls against provider APIs.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	if err := requireSessions(); err != nil {
		return err
	}
	id, err := parseProvider(args[0])
	if err != nil {
		return err
	}

	token, err := sessions.CurrentToken(commandContext(cmd), id)
	if errors.Is(err, domain.ErrAuthRequired) {
		return fmt.Errorf("%s is not connected; run 'unifiedhub connect %s'", providerName(id), id)
	}
	if err != nil {
		return fmt.Errorf("%s token: %w", providerName(id), err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
