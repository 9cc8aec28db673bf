package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status [provider]",
	Short: "Show provider connection status",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := requireSessions(); err != nil {
		return err
	}

	var statuses []domain.SessionStatus
	if len(args) == 1 {
		id, err := parseProvider(args[0])
		if err != nil {
			return err
		}
		st, err := sessions.Status(id)
		if err != nil {
			return err
		}
		statuses = []domain.SessionStatus{st}
	} else {
		statuses = sessions.Statuses()
	}

	if statusJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	cmd.Println(titleStyle.Render("Connections"))
	for _, st := range statuses {
		cmd.Printf("  %s %s %s\n",
			padRight(providerName(st.Provider), 10),
			stateStyle(st.State).Render(padRight(string(st.State), 14)),
			st.Message(),
		)
		if st.State == domain.StateConnected && !st.Expiry.IsZero() {
			cmd.Println(mutedStyle.Render("             " + expiryText(st.Expiry, time.Now())))
		}
		if st.LastError != "" {
			cmd.Println(mutedStyle.Render("             last error: " + st.LastError))
		}
	}
	return nil
}

// expiryText describes when an access token expires relative to now.
func expiryText(expiry, now time.Time) string {
	d := expiry.Sub(now).Round(time.Minute)
	if d <= 0 {
		return "access token expired, refreshes on next use"
	}
	return fmt.Sprintf("access token expires in %s", d)
}
