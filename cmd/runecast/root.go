package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/amutnick/Runecast"
	"github.com/amutnick/Runecast/internal/cli"
	"github.com/amutnick/Runecast/internal/config"
	"github.com/amutnick/Runecast/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "runecast",
	Short: "Runecast casts, interprets and journals Elder Futhark rune readings",
	Long: `Runecast walks you through a rune reading: draw real runes and record them,
or let Runecast draw for you. Each spread is interpreted, can be saved to a
local journal, and the journal can be analyzed for recurring patterns.

Run without a subcommand to start an interactive session.`,
	SilenceUsage: true,
	RunE:         runInteractive,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, tui.Error(err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default $RUNECAST_CONFIG or ~/.config/runecast/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging to stderr")
}

// env is what every command needs: configuration, a logger and the app.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	app    *runecast.App
}

func setup(cmd *cobra.Command, extra ...runecast.Option) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger, err := cli.NewLogger(cfg, debug)
	if err != nil {
		return nil, err
	}
	app, err := cli.NewApp(cfg, logger, extra...)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, app: app}, nil
}

func runInteractive(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.app.Close()

	tty := cli.IsTerminal(os.Stdin) && cli.IsTerminal(os.Stdout)
	opts := []cli.InteractiveOption{
		cli.WithWidth(cli.TerminalWidth(os.Stdout, 80)),
		cli.WithRetentionSaver(func(days int) error {
			return config.SaveRetention(e.cfg, days)
		}),
	}
	if tty {
		tui.PrintBanner(cmd.OutOrStdout(), runecast.Version)
		opts = append(opts, cli.WithRenderer(tui.NewRenderer()))
	}

	sigCtx := cli.NewSignalContext(cmd.Context())
	defer sigCtx.Cancel()

	in := cli.NewInterruptibleReader(os.Stdin, sigCtx.Done())
	err = cli.NewInteractive(e.app, in, cmd.OutOrStdout(), opts...).Run(sigCtx)
	if sig := sigCtx.Signal(); sig != nil {
		fmt.Fprintln(cmd.OutOrStdout())
		e.logger.Debug("Interrupted", "signal", sig)
	}
	return cli.HandleExecutionError(err)
}
