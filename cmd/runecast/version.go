package main

import (
	"fmt"
	"strings"

	"github.com/amutnick/Runecast"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of runecast",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "runecast version %s\n", strings.TrimSpace(runecast.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
