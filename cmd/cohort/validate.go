package main

import (
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <model>",
	Short: "Check the model for consistency",
	Long:  `Builds the model tree and checks references, complements and that every sibling group sums to one.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		return app.Validate(args[0])
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
