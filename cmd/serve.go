package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/screen-macro/internal/platform"
	"github.com/mj1618/screen-macro/internal/process"
	"github.com/mj1618/screen-macro/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server exposing the macro primitives",
	Long: `Start a Model Context Protocol (MCP) server that exposes image location,
input, window focus and process control as tools, so an agent can drive the
same primitives the macro uses without shell overhead.

Supported transports:
  stdio             Standard I/O (default)
  streamable-http   Streamable HTTP transport (for remote agents)

Examples:
  screen-macro serve
  screen-macro serve --transport streamable-http --port 8080
  screen-macro serve --cache-ttl 0`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	serveCmd.Flags().Int("port", 8080, "HTTP port for streamable-http transport")
	serveCmd.Flags().Duration("cache-ttl", 500*time.Millisecond, "Window list cache TTL (0 to disable)")
	addThresholdFlag(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")
	cacheTTL, _ := cmd.Flags().GetDuration("cache-ttl")

	provider, err := platform.NewProvider()
	if err != nil {
		return err
	}
	det, err := newDetector(cmd, provider)
	if err != nil {
		return err
	}

	cfg := server.Config{
		Transport: transport,
		Port:      port,
		CacheTTL:  cacheTTL,
	}
	srv := server.New(server.Deps{
		Locator:   det,
		Input:     newInjector(cmd, provider),
		Processes: process.New(),
		Screen:    provider.Screenshotter,
	}, cfg)

	return srv.Serve(cfg)
}
