package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvctl/internal/config"
)

var (
	loginEmail    string
	loginPassword string
	loginStdin    bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Long: `Signs in and stores the access and refresh tokens in the config directory.

The active role starts as the highest-priority role the account holds
(Admin, PM, BUL/Lead, Employee). Use "cvctl role switch" to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		email := strings.TrimSpace(loginEmail)
		if email == "" {
			return errors.New("--email flag is required")
		}
		password, err := readPassword(cfg, loginPassword, loginStdin, cmd.InOrStdin())
		if err != nil {
			return err
		}

		// Logging in replaces whatever session was stored.
		session, err := cfg.ClientProvider.Session(cmd.Context())
		if err != nil && session == nil {
			return err
		}
		user, err := session.Login(cmd.Context(), email, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if err := cfg.ClientProvider.SaveScope(session); err != nil {
			pterm.Warning.Printf("Failed to remember active role: %v\n", err)
		}

		pterm.Success.Printf("Logged in as %s (%s)\n", user.FullName, user.Email)
		pterm.Info.Printf("Roles: %s\n", strings.Join(user.RoleNames(), ", "))
		if scope := session.Scope(); scope != nil {
			pterm.Info.Printf("Active role: %s -> %s\n", scope.Active().Name, scope.Dashboard())
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted when omitted)")
	loginCmd.Flags().BoolVar(&loginStdin, "stdin", false, "Read the password from the first line of stdin")
}
