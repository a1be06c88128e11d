package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/logging"
	mcpresolver "github.com/typhonjs-node-utils/typhonjs-config-resolver/pkg/mcpserver/resolver"
)

var (
	mcpAddr   string
	mcpPrefix string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the resolver as MCP tools",
	Long: `Serve resolve, resolve_file, validate_pre, validate_post and
get_resolver_data as MCP tools. Uses stdio unless --addr is given, in which
case an SSE server listens on that address.`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", "", "Listen address for SSE transport (default stdio)")
	mcpCmd.Flags().StringVar(&mcpPrefix, "prefix", "", "Tool name prefix (defaults to eventPrepend)")
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	prefix := mcpPrefix
	if prefix == "" {
		prefix = a.settings.EventPrepend
	}
	s, err := mcpresolver.NewServer(a.resolver, mcpresolver.Options{Prefix: prefix, Version: Version, Bus: a.bus})
	if err != nil {
		return err
	}

	if mcpAddr == "" {
		return server.ServeStdio(s)
	}

	sse := server.NewSSEServer(s, server.WithBaseURL(fmt.Sprintf("http://%s", mcpAddr)))
	go func() {
		logging.Info().Str("addr", mcpAddr).Msg("MCP SSE server listening")
		if err := sse.Start(mcpAddr); err != nil {
			logging.Error().Err(err).Msg("MCP SSE server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return sse.Shutdown(shutdownCtx)
}
