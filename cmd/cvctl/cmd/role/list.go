package role

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvctl/internal/config"
)

var listAll bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the roles of the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		defer w.Flush()

		if listAll {
			sdkClient, err := cfg.ClientProvider.SDKClient()
			if err != nil {
				return err
			}
			roles, err := sdkClient.Roles(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tNAME")
			for _, r := range roles {
				fmt.Fprintf(w, "%s\t%s\n", r.ID, r.Name)
			}
			return nil
		}

		session, err := cfg.ClientProvider.RequireSession(cmd.Context())
		if err != nil {
			return err
		}
		scope := session.Scope()
		if scope == nil {
			return fmt.Errorf("%s holds no roles", session.User().Email)
		}
		snap := scope.Snapshot()
		fmt.Fprintln(w, "ACTIVE\tROLE\tDASHBOARD")
		for _, r := range snap.Available {
			marker := ""
			if r.Name == snap.Active.Name {
				marker = "*"
			}
			route, _ := session.Routes().DashboardFor(r.Name)
			fmt.Fprintf(w, "%s\t%s\t%s\n", marker, r.Name, route)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listAll, "all", false, "List every role the server knows about instead")
}
