package users

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/config"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/bunx"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/repository"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List employee accounts and their roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()
		db, err := bunx.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		users, err := repository.NewBunUserRepository(db).List(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCODE\tEMAIL\tROLES")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.EmployeeCode, u.Email, strings.Join(u.RoleNames(), ","))
		}
		return w.Flush()
	},
}
