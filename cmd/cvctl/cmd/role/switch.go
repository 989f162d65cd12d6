package role

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvctl/internal/config"
)

var switchCmd = &cobra.Command{
	Use:   "switch <role>",
	Short: "Make another of your roles active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		session, err := cfg.ClientProvider.RequireSession(cmd.Context())
		if err != nil {
			return err
		}
		if !session.SwitchRole(args[0]) {
			return fmt.Errorf("you do not hold role %q (roles: %s)", args[0], strings.Join(session.User().RoleNames(), ", "))
		}
		if err := cfg.ClientProvider.SaveScope(session); err != nil {
			return fmt.Errorf("failed to remember active role: %w", err)
		}
		pterm.Success.Printf("Active role: %s -> %s\n", args[0], session.Navigator().CurrentRoute())
		return nil
	},
}
