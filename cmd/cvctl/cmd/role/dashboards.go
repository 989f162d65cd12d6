package role

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvctl/internal/config"
)

var dashboardsCmd = &cobra.Command{
	Use:   "dashboards",
	Short: "List the dashboards the server opens for you",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		session, err := cfg.ClientProvider.RequireSession(cmd.Context())
		if err != nil {
			return err
		}
		links, err := session.Client().Dashboards(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SCOPE\tROLE\tROUTE")
		for _, l := range links {
			fmt.Fprintf(w, "%s\t%s\t%s\n", l.Scope, l.Role, l.Route)
		}
		return w.Flush()
	},
}
