package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var disconnectAll bool

var disconnectCmd = &cobra.Command{
	Use:   "disconnect [provider]",
	Short: "Disconnect a provider account",
	Long: `Discards the stored tokens for a provider and cancels any authorization
in progress for it. With --all, every provider's tokens are cleared.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDisconnect,
}

func init() {
	disconnectCmd.Flags().BoolVarP(&disconnectAll, "all", "a", false, "clear tokens for every provider")
	rootCmd.AddCommand(disconnectCmd)
}

func runDisconnect(cmd *cobra.Command, args []string) error {
	if err := requireSessions(); err != nil {
		return err
	}
	ctx := commandContext(cmd)

	if disconnectAll {
		if len(args) > 0 {
			return errors.New("--all does not take a provider")
		}
		if err := sessions.DisconnectAll(ctx); err != nil {
			return fmt.Errorf("clear tokens: %w", err)
		}
		cmd.Println("All provider tokens cleared.")
		return nil
	}

	if len(args) == 0 {
		return errors.New("provider required (or use --all)")
	}
	id, err := parseProvider(args[0])
	if err != nil {
		return err
	}

	wasConnected := sessions.IsConnected(id)
	if err := sessions.Disconnect(ctx, id); err != nil {
		return fmt.Errorf("disconnect %s: %w", providerName(id), err)
	}
	if wasConnected {
		cmd.Printf("%s disconnected.\n", providerName(id))
	} else {
		cmd.Printf("%s was not connected.\n", providerName(id))
	}
	return nil
}
