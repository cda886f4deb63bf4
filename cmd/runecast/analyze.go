package main

import (
	"encoding/json"
	"fmt"

	"github.com/amutnick/Runecast/internal/presentation/tui"
	"github.com/amutnick/Runecast/pkg/export"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how often each rune and spread appears in the journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.app.Close()

		st, err := e.app.History().Stats(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tui.StatsTable(st))
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Look for recurring runes and themes across the journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.app.Close()

		a, err := e.app.History().Analyze(cmd.Context())
		if err != nil {
			return err
		}
		if format == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(a)
		}
		if err := writeDocument(cmd.OutOrStdout(), format, "Runecast Patterns", export.AnalysisMarkdown(a)); err != nil {
			return err
		}
		if a.Degraded {
			fmt.Fprintln(cmd.ErrOrStderr(), tui.Warning("The analysis service was unavailable."))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd, analyzeCmd)
	statsCmd.Flags().Bool("json", false, "Print stats as JSON")
	analyzeCmd.Flags().String("format", "text", "Output format: text, markdown, html or json")
}
