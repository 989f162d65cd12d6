package users

import "github.com/spf13/cobra"

// UsersCmd is the parent command for user management operations
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage employee accounts",
	Long:  `Commands for managing employee accounts directly against the database, such as bootstrapping the first Admin.`,
}

func init() {
	createCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the user")
	createCmd.Flags().StringVar(&employeeCodeFlag, "employee-code", "", "Unique employee code")
	createCmd.Flags().StringVar(&fullNameFlag, "full-name", "", "Full name of the user")
	createCmd.Flags().StringVar(&passwordFlag, "password", "", "Password for the user (use --stdin to avoid shell history)")
	createCmd.Flags().StringVar(&departmentFlag, "department-id", "", "Department ID (optional)")
	createCmd.Flags().StringSliceVar(&rolesInput, "role", []string{}, "Role(s) to assign to the user (required)")
	createCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read password from stdin instead of --password flag")

	UsersCmd.AddCommand(createCmd)
	UsersCmd.AddCommand(listCmd)
}
