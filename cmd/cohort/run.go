package main

import (
	"context"

	"github.com/aretw0/cohort/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <model>",
	Short: "Run a model and print its result tables",
	Long: `Builds the model, runs every cycle and prints the state probabilities and the
discounted variables. The model is a YAML or JSON file, or a directory of CSV tables.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		save, _ := cmd.Flags().GetBool("store")

		opts := cli.RunOptions{
			Model:    args[0],
			Settings: readSettingsFlags(cmd),
			Format:   format,
			Save:     save,
		}
		if cmd.Flags().Changed("seed") {
			seed, _ := cmd.Flags().GetUint64("seed")
			opts.Seed = &seed
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()
		return app.Run(ctx, opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Uint64("seed", 0, "Sample parameters with this seed")
	runCmd.Flags().StringP("format", "f", "markdown", "Output format: markdown, csv or json")
	runCmd.Flags().Bool("store", false, "Keep the run in the configured store")
	settingsFlags(runCmd)
}
