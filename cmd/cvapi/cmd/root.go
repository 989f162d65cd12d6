package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/cmd/users"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/config"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/logging"
)

var (
	cfg     *config.Config
	log     *logrus.Logger
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "cvapi",
	Short: "CV management API server",
	Long: `cvapi serves the session and authorization endpoints of the CV management
application: login, registration, token refresh and logout, and role scoped
dashboards backed by Casbin policies.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		level := cfg.LogLevel
		if cfg.Debug {
			level = "debug"
		}
		log, err = logging.New(os.Stderr, level, cfg.LogFormat)
		if err != nil {
			return err
		}
		logrus.SetLevel(log.GetLevel())
		logrus.SetFormatter(log.Formatter)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: CVAPI_DATABASE_URL)")
	rootCmd.PersistentFlags().String("server-addr", "", "Server bind address (env: CVAPI_SERVER_ADDR)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: CVAPI_DEBUG)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format, text or json (env: CVAPI_LOG_FORMAT)")

	_ = viper.BindPFlag("database_url", rootCmd.PersistentFlags().Lookup("db-url"))
	_ = viper.BindPFlag("server_addr", rootCmd.PersistentFlags().Lookup("server-addr"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(users.UsersCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
