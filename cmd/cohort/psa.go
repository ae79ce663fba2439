package main

import (
	"context"

	"github.com/aretw0/cohort/internal/cli"
	"github.com/spf13/cobra"
)

var psaCmd = &cobra.Command{
	Use:   "psa <model>",
	Short: "Run a probabilistic sensitivity analysis",
	Long: `Runs the model many times, sampling every ranged parameter with seed, seed+1, ...
and prints the mean, standard deviation and 95% interval of every variable total.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		iterations, _ := cmd.Flags().GetInt("iterations")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		seed, _ := cmd.Flags().GetUint64("seed")
		format, _ := cmd.Flags().GetString("format")

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()
		return app.PSA(ctx, cli.PSAOptions{
			Model:       args[0],
			Iterations:  iterations,
			Concurrency: concurrency,
			Seed:        seed,
			Settings:    readSettingsFlags(cmd),
			Format:      format,
		})
	},
}

func init() {
	rootCmd.AddCommand(psaCmd)

	psaCmd.Flags().IntP("iterations", "n", 1000, "Number of sampled runs")
	psaCmd.Flags().Int("concurrency", 0, "Runs in flight (default GOMAXPROCS)")
	psaCmd.Flags().Uint64("seed", 1, "Seed of the first iteration")
	psaCmd.Flags().StringP("format", "f", "markdown", "Output format: markdown, csv or json")
	settingsFlags(psaCmd)
}
