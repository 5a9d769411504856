package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ArashRezazadeh/DataAnnotations/cmd/authd/cmd/cmdutil"
	"github.com/ArashRezazadeh/DataAnnotations/cmd/authd/cmd/users"
	"github.com/ArashRezazadeh/DataAnnotations/internal/config"
	"github.com/ArashRezazadeh/DataAnnotations/internal/logging"
)

var (
	cfg        *config.Config
	logger     *zap.Logger
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "authd",
	Short: "Account server issuing bearer tokens and cookie sessions",
	Long: `authd registers accounts, verifies credentials and authenticates requests
with either a signed bearer token or a server-side cookie session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}
		if cmdutil.SkipsConfig(cmd) {
			return nil
		}

		var err error
		if cmdutil.NeedsSigningKey(cmd) {
			cfg, err = config.Load()
		} else {
			cfg, err = config.LoadWithoutKey()
		}
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		cmdutil.SetRuntime(cfg, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML/TOML/JSON config file")
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: AUTHD_DATABASE_URL)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (env: AUTHD_LOG_LEVEL)")
	_ = viper.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("db-url"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(serveCmd, dbCmd, keygenCmd, users.UsersCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
