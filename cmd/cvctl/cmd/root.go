package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvctl/cmd/auth"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvctl/cmd/role"
	cvauth "github.com/duongduc025/CV-Management-sub000/cmd/cvctl/internal/auth"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvctl/internal/client"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvctl/internal/config"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "cvctl",
	Short: "CV Management CLI - session and role client",
	Long: `cvctl signs in to the CV Management API, keeps the session's tokens in
~/.cvctl, and lets you inspect and switch the active role and open role
dashboards the way the web client does.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log := logrus.New()
		log.SetOutput(os.Stderr)
		log.SetLevel(logrus.WarnLevel)
		if v.GetBool("debug") {
			log.SetLevel(logrus.DebugLevel)
		}

		dir := v.GetString("config_dir")
		if dir == "" {
			var err error
			if dir, err = cvauth.DefaultDir(); err != nil {
				return err
			}
		}

		cfg := &config.GlobalConfig{
			ServerURL:      strings.TrimRight(v.GetString("server"), "/"),
			ConfigDir:      dir,
			Route:          v.GetString("route"),
			NonInteractive: v.GetBool("non_interactive"),
		}
		cfg.ClientProvider = client.NewProvider(cfg.ServerURL, cfg.ConfigDir, cfg.Route, client.WithLogger(log))
		cmd.SetContext(config.InjectConfig(cmd.Context(), cfg))
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("server", "http://localhost:8080", "CV Management API server URL")
	flags.String("config-dir", "", "Directory holding credentials and the active role (default ~/.cvctl)")
	flags.String("route", "/", "Page the CLI acts from; a failed refresh on a protected page redirects to /login")
	flags.Bool("non-interactive", false, "Disable interactive prompts (also set via CVCTL_NON_INTERACTIVE=1)")
	flags.Bool("debug", false, "Log SDK activity to stderr")

	for key, flag := range map[string]string{
		"server":          "server",
		"config_dir":      "config-dir",
		"route":           "route",
		"non_interactive": "non-interactive",
		"debug":           "debug",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
	v.SetEnvPrefix("CVCTL")
	v.AutomaticEnv()

	rootCmd.AddCommand(auth.AuthCmd)
	rootCmd.AddCommand(role.RoleCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(getCmd)
}
