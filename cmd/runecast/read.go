package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/amutnick/Runecast/internal/presentation/tui"
	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/export"
	"github.com/amutnick/Runecast/pkg/session"
	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Cast a single reading non-interactively",
	Long: `Casts one spread and prints its interpretation.

In virtual mode Runecast draws the runes; --runes may still pin some of them.
In physical mode --runes lists every rune you drew, with an optional
orientation, e.g. --runes "Fehu:reversed, Gebo, Ansuz:upright".`,
	Example: `  runecast read --spread "Three Norns"
  runecast read --mode physical --spread "Single Rune" --runes "Fehu:reversed" --save`,
	RunE: func(cmd *cobra.Command, args []string) error {
		modeFlag, _ := cmd.Flags().GetString("mode")
		spread, _ := cmd.Flags().GetString("spread")
		runes, _ := cmd.Flags().GetString("runes")
		save, _ := cmd.Flags().GetBool("save")
		format, _ := cmd.Flags().GetString("format")

		mode, err := domain.ParseMode(modeFlag)
		if err != nil {
			return fmt.Errorf("%w: %q (use physical or virtual)", err, modeFlag)
		}

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.app.Close()

		picks, err := session.ParsePicks(e.app.Catalog(), runes)
		if err != nil {
			return err
		}
		snap, rec, err := e.app.Cast(cmd.Context(), mode, spread, picks, save)
		if err != nil {
			return err
		}

		out := domain.ReadingRecord{
			CreatedAt:      time.Now(),
			Spread:         *snap.Spread,
			Runes:          snap.Selections,
			Interpretation: *snap.Result,
		}
		if rec != nil {
			out = *rec
		}

		w := cmd.OutOrStdout()
		switch format {
		case "json":
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		case "markdown":
			fmt.Fprint(w, export.Markdown(out))
		default:
			rendered, err := tui.NewRenderer()(export.Markdown(out))
			if err != nil {
				return err
			}
			fmt.Fprint(w, rendered)
		}

		switch {
		case snap.Status == domain.StatusFailed:
			fmt.Fprintln(cmd.ErrOrStderr(), tui.Warning("The interpreter was unavailable; this reading was not saved."))
		case rec != nil:
			fmt.Fprintln(cmd.ErrOrStderr(), tui.Muted("Saved as "+rec.ID))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().String("mode", string(domain.ModeVirtual), "Acquisition mode: physical or virtual")
	readCmd.Flags().String("spread", "Single Rune", "Spread name")
	readCmd.Flags().String("runes", "", "Comma-separated runes, each optionally suffixed with :upright or :reversed")
	readCmd.Flags().Bool("save", false, "Save the reading to the journal")
	readCmd.Flags().String("format", "text", "Output format: text, markdown or json")
}
