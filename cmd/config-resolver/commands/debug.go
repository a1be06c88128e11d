package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/config"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/logging"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/output"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/resolver"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Debug utilities",
	Long:  `Debug utilities for troubleshooting config-resolver settings and setup.`,
}

var debugConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the merged settings",
	RunE:  runDebugConfig,
}

var debugPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show system paths",
	RunE:  runDebugPaths,
}

func init() {
	debugCmd.AddCommand(debugConfigCmd)
	debugCmd.AddCommand(debugPathsCmd)
}

func runDebugConfig(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	settings := a.settings

	unregister, err := resolver.Register(a.bus, a.resolver, resolver.RegisterOptions{EventPrepend: settings.EventPrepend})
	if err != nil {
		return err
	}
	defer unregister()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Sources:")
	if len(settings.Sources) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, s := range settings.Sources {
		fmt.Fprintf(out, "  %s\n", s)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Resolver data: %s\n", settings.Data)
	fmt.Fprintf(out, "Module dirs:   %v\n", settings.ModuleDirs)
	fmt.Fprintf(out, "Event prepend: %q\n", settings.EventPrepend)
	fmt.Fprintf(out, "Triggers:      %s\n", strings.Join(a.bus.Handlers(), ", "))
	fmt.Fprintf(out, "Allow extends: %v\n", settings.AllowExtends)
	fmt.Fprintf(out, "Interpolate:   %v\n", settings.Interpolate)
	fmt.Fprintln(out)

	text, err := output.Format(settings.Raw, output.FormatJSON)
	if err != nil {
		return err
	}
	fmt.Fprint(out, text)
	return nil
}

func runDebugPaths(cmd *cobra.Command, args []string) error {
	paths := config.GetPaths()
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "config-resolver System Paths:")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Config:   %s\n", paths.Config)
	fmt.Fprintf(out, "  Cache:    %s\n", paths.Cache)
	fmt.Fprintf(out, "  State:    %s\n", paths.State)
	fmt.Fprintf(out, "  Logs:     %s\n", paths.LogDir())
	if f := logging.GetLogFilePath(); f != "" {
		fmt.Fprintf(out, "  Log file: %s\n", f)
	}
	fmt.Fprintf(out, "  Global:   %s\n", config.GlobalConfigPath())
	return nil
}
