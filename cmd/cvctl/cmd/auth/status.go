package auth

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvctl/internal/config"
	"github.com/duongduc025/CV-Management-sub000/pkg/sdk"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display authentication status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		session, err := cfg.ClientProvider.RequireSession(cmd.Context())
		if err != nil {
			return err
		}
		user := session.User()
		creds := session.Client().Store().Get()

		pterm.DefaultSection.Println("Authentication Status")
		pterm.Info.Printf("Logged in as %s (%s)\n", user.FullName, user.Email)
		if exp, err := sdk.ExpiresAt(creds.AccessToken); err == nil {
			pterm.Info.Printf("Access token expires at: %s\n", exp.Local().Format(time.RFC1123))
		}
		if user.Department != nil {
			pterm.Info.Printf("Department: %s\n", user.Department.Name)
		}

		scope := session.Scope()
		if scope == nil {
			pterm.Warning.Println("Account holds no roles")
			return nil
		}
		snap := scope.Snapshot()

		pterm.DefaultSection.Println("Roles")
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ACTIVE\tROLE\tDASHBOARD")
		for _, r := range snap.Available {
			marker := ""
			if r.Name == snap.Active.Name {
				marker = "*"
			}
			route, _ := session.Routes().DashboardFor(r.Name)
			fmt.Fprintf(w, "%s\t%s\t%s\n", marker, r.Name, route)
		}
		w.Flush()

		if len(snap.Available) > 1 {
			pterm.Info.Printf("Switch with: cvctl role switch <%s>\n", strings.Join(user.RoleNames(), "|"))
		}
		return nil
	},
}
