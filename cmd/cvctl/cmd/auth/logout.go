package auth

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvctl/internal/config"
	"github.com/duongduc025/CV-Management-sub000/pkg/sdk"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and revoke the stored tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		sdkClient, err := cfg.ClientProvider.SDKClient()
		if err != nil {
			return err
		}
		if sdkClient.Store().Get().Empty() {
			pterm.Info.Println("Not logged in")
			return nil
		}

		session := sdk.NewSession(sdkClient)
		if err := session.Logout(cmd.Context()); err != nil {
			return fmt.Errorf("failed to delete credentials: %w", err)
		}
		pterm.Success.Println("Logged out successfully")
		return nil
	},
}
