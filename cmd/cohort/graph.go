package main

import (
	"context"

	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <model>",
	Short: "Export the model tree visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the states, chance nodes and transitions of a model.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		occupancy, _ := cmd.Flags().GetBool("occupancy")
		highlight, _ := cmd.Flags().GetStringSlice("highlight")
		return app.Graph(context.Background(), args[0], occupancy, highlight...)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("occupancy", false, "Run the model and annotate states with their final occupancy")
	graphCmd.Flags().StringSlice("highlight", nil, "Nodes to highlight (comma separated)")
}
