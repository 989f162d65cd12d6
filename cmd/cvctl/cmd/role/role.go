package role

import (
	"github.com/spf13/cobra"
)

// RoleCmd is the parent command for the active role scope.
var RoleCmd = &cobra.Command{
	Use:   "role",
	Short: "Inspect and switch the active role",
	Long: `A user holding several roles acts as one of them at a time. The active
role decides which dashboard the session lands on. cvctl remembers it between
invocations until logout.`,
}

func init() {
	RoleCmd.AddCommand(listCmd)
	RoleCmd.AddCommand(switchCmd)
	RoleCmd.AddCommand(dashboardsCmd)
}
