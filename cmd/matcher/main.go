package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gss-opera-matcher/internal/config"
	"github.com/gss-opera-matcher/internal/debug"
)

var (
	// Settings resolved for the running command
	settings *viper.Viper
	cfgFile  string
)

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:   "matcher",
		Short: "GSS/Opera guest record matcher",
		Long: `Reconciles guest satisfaction survey (GSS) responses with Opera
property-management records by date proximity and fuzzy name similarity`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "YAML settings profile (default .matcher.yaml in . or $HOME)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "console", "log format: console or json")
	flags.Bool("debug", false, "trace per-row matching decisions")

	// Add subcommands
	rootCmd.AddCommand(createMatchCmd())
	rootCmd.AddCommand(createServeCmd())
	rootCmd.AddCommand(createDBCmd())
	rootCmd.AddCommand(createInspectCmd())

	// Execute root command
	err := rootCmd.Execute()
	_ = debug.Logger().Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads .env, resolves settings and installs the process logger
func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnv(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	v, err := newViper(cfgFile)
	if err != nil {
		return err
	}
	if err := bindFlags(v, cmd); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	settings = v

	level := v.GetString("log_level")
	if v.GetBool("debug") {
		level = "debug"
	}
	logger, err := debug.NewLogger(level, v.GetString("log_format"))
	if err != nil {
		return err
	}
	debug.SetLogger(logger)
	return nil
}
