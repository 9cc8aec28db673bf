package cli

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

var connectForce bool

var connectCmd = &cobra.Command{
	Use:   "connect <provider>",
	Short: "Connect a provider account",
	Long: `Opens the provider's consent page in your browser and waits for the
authorization redirect on the local callback address.

Connecting a provider that is already authorizing abandons the earlier
attempt and starts over with a fresh consent page. Different providers
share the callback address, so their authorizations run one after the
other. Use --force to discard the existing session first and reconnect
from scratch.`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().BoolVarP(&connectForce, "force", "f", false, "disconnect first, then reconnect")
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	if err := requireSessions(); err != nil {
		return err
	}
	id, err := parseProvider(args[0])
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	name := providerName(id)

	if connectForce {
		if err := sessions.Disconnect(ctx, id); err != nil {
			return fmt.Errorf("disconnect %s: %w", name, err)
		}
	}

	var mu sync.Mutex
	unsubscribe := sessions.Subscribe(func(st domain.SessionStatus) {
		if st.Provider != id {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		switch st.State {
		case domain.StateAuthorizing:
			cmd.Printf("Opening browser for %s authorization...\n", name)
		case domain.StateExchanging:
			cmd.Println("Authorization received, exchanging code...")
		}
	})
	defer unsubscribe()

	connectErr := sessions.Connect(ctx, id)

	status, err := sessions.Status(id)
	if err != nil {
		return err
	}
	if connectErr != nil {
		cmd.Printf("%s: %s\n", name, status.Message())
		return fmt.Errorf("connect %s: %w", name, connectErr)
	}

	cmd.Printf("%s: %s\n", name, status.Message())
	return nil
}
