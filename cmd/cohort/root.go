package main

import (
	"fmt"
	"os"

	"github.com/aretw0/cohort/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cohort",
	Short: "Cohort is a Markov cohort simulator for health-economic models",
	Long: `Cohort runs Markov cohort models: a population distributed over health states
moves through decision trees each cycle while costs and utilities accumulate
with discounting. Models are YAML, JSON or CSV table sets.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Configuration file (default ./cohort.yaml if present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

// newApp builds the shared command context from the persistent flags.
func newApp(cmd *cobra.Command) (*cli.App, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	level, _ := cmd.Flags().GetString("log-level")
	return cli.NewApp(cfgPath, level, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// settingsFlags registers the run settings flags on cmd.
func settingsFlags(cmd *cobra.Command) {
	cmd.Flags().Int("cycles", 0, "Number of cycles (overrides the model)")
	cmd.Flags().String("count-method", "", "Count method: start, end or half (overrides the model)")
	cmd.Flags().Float64("discount-rate", 0, "Discount rate per cycle (overrides the model)")
}

// readSettingsFlags returns only the flags the user changed.
func readSettingsFlags(cmd *cobra.Command) cli.SettingsFlags {
	var s cli.SettingsFlags
	if cmd.Flags().Changed("cycles") {
		v, _ := cmd.Flags().GetInt("cycles")
		s.Cycles = &v
	}
	if cmd.Flags().Changed("count-method") {
		v, _ := cmd.Flags().GetString("count-method")
		s.CountMethod = &v
	}
	if cmd.Flags().Changed("discount-rate") {
		v, _ := cmd.Flags().GetFloat64("discount-rate")
		s.DiscountRate = &v
	}
	return s
}
