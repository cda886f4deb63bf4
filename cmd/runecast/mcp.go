package main

import (
	"fmt"
	"log"
	"os"

	"github.com/amutnick/Runecast"
	"github.com/amutnick/Runecast/internal/cli"
	"github.com/amutnick/Runecast/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts Runecast as an MCP server so AI agents can cast readings, browse the
journal and run pattern analysis as tools.

Supported transports:
- stdio (default): Standard Input/Output, for local process integration.
- sse: Server-Sent Events over HTTP, for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")
		baseURL, _ := cmd.Flags().GetString("base-url")

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.app.Close()

		srv, err := mcp.NewServer(mcp.Config{
			Catalog:        e.app.Catalog(),
			Interpreter:    e.app.Interpreter(),
			History:        e.app.History(),
			MachineOptions: e.app.SessionOptions(),
			Logger:         e.logger,
			Version:        runecast.Version,
		})
		if err != nil {
			return err
		}

		switch transport {
		case "stdio":
			// Stdout carries JSON-RPC; keep stray log output off it.
			log.SetOutput(os.Stderr)
			e.logger.Info("Starting Runecast MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			if baseURL == "" {
				baseURL = "http://localhost" + addr
			}
			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()
			if err := srv.ServeSSE(sigCtx, addr, baseURL); err != nil {
				return err
			}
			e.logger.Info("MCP server stopped gracefully")
			return nil
		}
		return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Address to listen on (sse only)")
	mcpCmd.Flags().String("base-url", "", "Public base URL advertised to SSE clients (default http://localhost<addr>)")
}
