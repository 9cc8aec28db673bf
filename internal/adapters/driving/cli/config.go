package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configClientID string

var configSetCredentialsCmd = &cobra.Command{
	Use:   "set-credentials <provider>",
	Short: "Store the OAuth client registration for a provider",
	Long: `Stores the client ID and secret registered with the provider. The secret
is read from the terminal without echo.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigSetCredentials,
}

var configSetBackendCmd = &cobra.Command{
	Use:   "set-backend <file|sqlite>",
	Short: "Select where tokens are persisted",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigSetBackend,
}

// secretInput is where set-credentials reads the client secret from.
var secretInput io.Reader = os.Stdin

func init() {
	configSetCredentialsCmd.Flags().StringVar(&configClientID, "client-id", "", "OAuth client ID")
	configCmd.AddCommand(configShowCmd, configSetCredentialsCmd, configSetBackendCmd)
	rootCmd.AddCommand(configCmd)
}

func requireSettings() error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	cmd.Println(titleStyle.Render("Redirect"))
	cmd.Printf("  URI: %s\n", settings.Redirect.URI())
	cmd.Printf("  Timeout: %s\n", settings.Redirect.Timeout)
	cmd.Println()

	cmd.Println(titleStyle.Render("Tokens"))
	cmd.Printf("  Backend: %s (%s)\n", settings.Tokens.Backend, settings.Tokens.Backend.Description())
	if settings.Tokens.Path != "" {
		cmd.Printf("  Path: %s\n", settings.Tokens.Path)
	}
	cmd.Printf("  Watch for changes: %t\n", settings.Tokens.Watch)
	cmd.Printf("  Refresh skew: %s\n", settings.Refresh.Skew)
	cmd.Printf("  HTTP timeout: %s\n", settings.HTTPTimeout)
	cmd.Println()

	cmd.Println(titleStyle.Render("Providers"))
	for _, id := range domain.KnownProviders {
		creds := settings.Credentials(id)
		cmd.Printf("  %s\n", providerName(id))
		if creds.ClientID == "" {
			cmd.Println("    Client ID: (not set)")
		} else {
			cmd.Printf("    Client ID: %s\n", creds.ClientID)
		}
		if creds.ClientSecret == "" {
			cmd.Println("    Client secret: (not set)")
		} else {
			cmd.Printf("    Client secret: %s\n", maskSecret(creds.ClientSecret))
		}
	}

	if err := settingsService.Validate(); err != nil {
		cmd.Println()
		cmd.Println(warningStyle.Render("Warning: " + err.Error()))
	}
	return nil
}

func runConfigSetCredentials(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	id, err := parseProvider(args[0])
	if err != nil {
		return err
	}

	in := bufio.NewReader(secretInput)
	clientID := strings.TrimSpace(configClientID)
	if clientID == "" {
		cmd.Print("Client ID: ")
		clientID = readLine(in)
		if clientID == "" {
			return errors.New("client ID is required")
		}
	}

	cmd.Print("Client secret: ")
	secret := readPassword(secretInput, in)
	cmd.Println()
	if secret == "" {
		return errors.New("client secret is required")
	}

	if err := settingsService.SetCredentials(id, clientID, secret); err != nil {
		return fmt.Errorf("save %s credentials: %w", providerName(id), err)
	}
	cmd.Printf("%s credentials saved.\n", providerName(id))
	return nil
}

func runConfigSetBackend(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	backend := domain.TokenBackend(strings.ToLower(strings.TrimSpace(args[0])))
	if !backend.IsValid() {
		return fmt.Errorf("unknown backend %q (use %s or %s)", args[0], domain.TokenBackendFile, domain.TokenBackendSQLite)
	}
	if err := settingsService.SetTokenBackend(backend); err != nil {
		return fmt.Errorf("save backend: %w", err)
	}
	cmd.Printf("Token backend set to %s. Existing tokens are not migrated.\n", backend.Description())
	return nil
}

// readPassword reads without echo when src is a terminal, otherwise a
// line from in.
func readPassword(src io.Reader, in *bufio.Reader) string {
	if f, ok := src.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(in)
}

func readLine(in *bufio.Reader) string {
	input, _ := in.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
