package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvctl/internal/config"
	"github.com/duongduc025/CV-Management-sub000/pkg/sdk"
)

var (
	regEmail        string
	regEmployeeCode string
	regFullName     string
	regPassword     string
	regDepartmentID string
	regRoles        []string
	regStdin        bool
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Long: `Creates an account with the Employee role.

Additional roles (--role) are only accepted when the current session belongs
to an Admin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		input := sdk.RegisterInput{
			EmployeeCode: strings.TrimSpace(regEmployeeCode),
			FullName:     strings.TrimSpace(regFullName),
			Email:        strings.TrimSpace(regEmail),
			DepartmentID: strings.TrimSpace(regDepartmentID),
			RoleNames:    regRoles,
		}
		switch {
		case input.Email == "":
			return errors.New("--email flag is required")
		case input.EmployeeCode == "":
			return errors.New("--employee-code flag is required")
		case input.FullName == "":
			return errors.New("--full-name flag is required")
		}
		password, err := readPassword(cfg, regPassword, regStdin, cmd.InOrStdin())
		if err != nil {
			return err
		}
		input.Password = password

		sdkClient, err := cfg.ClientProvider.SDKClient()
		if err != nil {
			return err
		}
		if len(input.RoleNames) > 0 {
			// Extra roles need the caller's session on the request.
			err = sdkClient.PostJSON(cmd.Context(), "/auth/register", input, nil)
		} else {
			err = sdkClient.Register(cmd.Context(), input)
		}
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}

		pterm.Success.Printf("Registered %s (%s)\n", input.FullName, input.Email)
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&regEmail, "email", "", "Account email")
	registerCmd.Flags().StringVar(&regEmployeeCode, "employee-code", "", "Employee code")
	registerCmd.Flags().StringVar(&regFullName, "full-name", "", "Full name")
	registerCmd.Flags().StringVar(&regPassword, "password", "", "Account password (prompted when omitted)")
	registerCmd.Flags().StringVar(&regDepartmentID, "department-id", "", "Department ID")
	registerCmd.Flags().StringSliceVar(&regRoles, "role", nil, "Extra role to grant (Admin session only, repeatable)")
	registerCmd.Flags().BoolVar(&regStdin, "stdin", false, "Read the password from the first line of stdin")
}
