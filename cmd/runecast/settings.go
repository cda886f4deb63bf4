package main

import (
	"fmt"
	"strconv"

	"github.com/amutnick/Runecast/internal/config"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change persistent settings",
}

var retentionCmd = &cobra.Command{
	Use:   "retention [days]",
	Short: "Show or set how many days readings are kept (0 or less keeps everything)",
	Long: `Without an argument, prints the current retention. With one, saves the new
retention to the config file. Nothing is deleted until you run "history prune".
Negative values go after "--", e.g. runecast settings retention -- -1.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.app.Close()

		if len(args) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", e.app.History().Retention())
			return nil
		}

		days, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("retention must be a whole number of days, got %q", args[0])
		}
		e.app.History().SetRetention(days)
		days = e.app.History().Retention()
		if err := config.SaveRetention(e.cfg, days); err != nil {
			return err
		}
		if days == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Retention disabled, readings are kept forever (saved to %s)\n", e.cfg.Path)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Retention set to %d days, saved to %s\n", days, e.cfg.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(retentionCmd)
}
