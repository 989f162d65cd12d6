package cmd

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvctl/internal/config"
	"github.com/duongduc025/CV-Management-sub000/pkg/sdk"
)

var openCmd = &cobra.Command{
	Use:   "open <route>",
	Short: "Evaluate a page route the way the web client's guard does",
	Long: `Resolves the session, then decides whether <route> renders for the active
role or redirects elsewhere. Role dashboards that render are loaded from the
server.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		session, err := cfg.ClientProvider.Session(cmd.Context())
		if err != nil && !errors.Is(err, sdk.ErrRefreshFailed) && !errors.Is(err, sdk.ErrSessionEnded) {
			return err
		}

		decision, err := sdk.NewDashboardGuard(session).Await(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if decision.State == sdk.GuardRedirecting {
			pterm.Warning.Printf("%s redirects to %s\n", decision.Path, decision.Redirect)
			return nil
		}

		pterm.Success.Printf("%s renders\n", decision.Path)
		if decision.Scope != nil {
			pterm.Info.Printf("Active role: %s\n", decision.Scope.Active.Name)
		}
		route, _ := session.Routes().Lookup(decision.Path)
		if route.Role == "" {
			return nil
		}
		return showDashboard(cmd, session.Client(), route.Role)
	},
}

func showDashboard(cmd *cobra.Command, client *sdk.Client, role string) error {
	links, err := client.Dashboards(cmd.Context())
	if err != nil {
		return err
	}
	for _, l := range links {
		if l.Role != role {
			continue
		}
		d, err := client.Dashboard(cmd.Context(), l.Scope)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s dashboard for %s (%s)\n", d.Role, d.User.FullName, d.User.Email)
		return nil
	}
	return fmt.Errorf("server does not offer a %s dashboard to this account", role)
}
