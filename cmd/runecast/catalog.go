package main

import (
	"fmt"
	"strings"

	"github.com/amutnick/Runecast/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the runes and spreads available for readings",
}

var catalogRunesCmd = &cobra.Command{
	Use:   "runes",
	Short: "List runes with their keywords",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.app.Close()

		w := cmd.OutOrStdout()
		for _, r := range e.app.Catalog().Runes() {
			line := fmt.Sprintf("%s  %-10s %s", r.Symbol, r.Name, strings.Join(r.Keywords, ", "))
			if !r.Reversible() {
				line += " " + tui.Muted("(reads the same reversed)")
			}
			fmt.Fprintln(w, line)
		}
		return nil
	},
}

var catalogSpreadsCmd = &cobra.Command{
	Use:   "spreads",
	Short: "List spreads",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.app.Close()

		for _, s := range e.app.Catalog().Spreads() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d)\n  %s\n", tui.Title(s.Name), s.RuneCount, s.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogRunesCmd, catalogSpreadsCmd)
}
