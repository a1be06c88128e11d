// Command resolver-mcp runs the config resolver MCP server over stdio,
// configured from config-resolver.json in the working directory.
package main

import (
	"io"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/config"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/logging"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/loader"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/resolver"
	mcpresolver "github.com/typhonjs-node-utils/typhonjs-config-resolver/pkg/mcpserver/resolver"
)

func main() {
	// stdout carries the protocol
	cfg := logging.DefaultConfig()
	cfg.Output = io.Discard
	if lvl := os.Getenv("CONFIG_RESOLVER_LOG_LEVEL"); lvl != "" {
		cfg.Output = os.Stderr
		cfg.Level = logging.ParseLevel(lvl)
	}
	logging.Init(cfg)

	dir, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	settings, err := config.Load(dir)
	if err != nil {
		log.Fatal(err)
	}

	r := resolver.New(resolver.Options{
		Data:         settings.Data,
		Loader:       loader.New(nil, settings.LoaderOptions()...),
		BaseDir:      dir,
		AllowExtends: settings.AllowExtends,
	})

	s, err := mcpresolver.NewServer(r, mcpresolver.Options{Prefix: settings.EventPrepend})
	if err != nil {
		log.Fatal(err)
	}
	if err := server.ServeStdio(s); err != nil {
		log.Fatal(err)
	}
}
