package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/cohort"
	"github.com/aretw0/cohort/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of cohort",
	Run: func(cmd *cobra.Command, args []string) {
		banner, _ := cmd.Flags().GetBool("banner")
		if banner {
			tui.PrintBanner(cmd.OutOrStdout(), strings.TrimSpace(cohort.Version))
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cohort version %s\n", strings.TrimSpace(cohort.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("banner", false, "Print the banner")
}
