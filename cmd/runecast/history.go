package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/amutnick/Runecast/internal/cli"
	"github.com/amutnick/Runecast/internal/presentation/tui"
	"github.com/amutnick/Runecast/pkg/export"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"journal"},
	Short:   "Browse and manage the reading journal",
}

var historyListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List saved readings, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.app.Close()

		records, err := e.app.History().List(cmd.Context())
		if err != nil {
			return err
		}
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tui.HistoryTable(records, cli.TerminalWidth(os.Stdout, 100)))
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one reading",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.app.Close()

		rec, err := e.app.History().Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeDocument(cmd.OutOrStdout(), format, "Runecast Reading", export.Markdown(rec))
	},
}

var historyRemoveCmd = &cobra.Command{
	Use:     "rm <id>...",
	Aliases: []string{"delete"},
	Short:   "Delete readings",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.app.Close()

		for _, id := range args {
			if err := e.app.History().Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
		}
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete readings older than the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.app.Close()

		days := e.app.History().Retention()
		if cmd.Flags().Changed("days") {
			days, _ = cmd.Flags().GetInt("days")
			if days < 0 {
				return fmt.Errorf("--days must not be negative")
			}
		}
		removed, err := e.app.History().Prune(cmd.Context(), days)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d readings older than %d days\n", removed, days)
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the whole journal as Markdown or HTML",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		if format != "markdown" && format != "html" {
			return fmt.Errorf("unsupported export format %q (use markdown or html)", format)
		}

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.app.Close()

		records, err := e.app.History().List(cmd.Context())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if err := writeDocument(w, format, export.JournalTitle, export.HistoryMarkdown(records)); err != nil {
			return err
		}
		if output != "" && output != "-" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d readings to %s\n", len(records), output)
		}
		return nil
	},
}

// writeDocument writes markdown as-is, as a standalone HTML page, or
// rendered for the terminal.
func writeDocument(w io.Writer, format, title, markdown string) error {
	switch format {
	case "markdown":
		_, err := io.WriteString(w, markdown)
		return err
	case "html":
		doc, err := export.HTMLDocument(title, markdown)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, doc)
		return err
	case "text", "":
		out, err := tui.NewRenderer()(markdown)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}
	return fmt.Errorf("unsupported format %q", format)
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyRemoveCmd, historyPruneCmd, historyExportCmd)

	historyListCmd.Flags().Int("limit", 0, "Show at most this many readings (0 for all)")
	historyListCmd.Flags().Bool("json", false, "Print records as JSON")
	historyShowCmd.Flags().String("format", "text", "Output format: text, markdown or html")
	historyPruneCmd.Flags().Int("days", 0, "Retention in days (default: the configured retention)")
	historyExportCmd.Flags().String("format", "markdown", "Export format: markdown or html")
	historyExportCmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
}
