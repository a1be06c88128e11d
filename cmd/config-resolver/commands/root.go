// Package commands provides the CLI commands for config-resolver.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/config"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/event"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/loader"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/logging"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/output"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/resolver"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs bool
	logLevel  string
	envFiles  []string
	workDir   string
	noColor   bool
	jsonOut   bool
)

var rootCmd = &cobra.Command{
	Use:   "config-resolver",
	Short: "Resolve configuration extends chains",
	Long: `config-resolver loads a configuration file, follows its "extends"
references through local files and node modules, deep-merges the chain and
applies defaults and validation rules from config-resolver.json.

Run 'config-resolver resolve <file>' to print a resolved configuration.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "WARN", "Log level (DEBUG|INFO|WARN|ERROR|OFF)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Load environment variables from a .env file")
	rootCmd.PersistentFlags().StringVarP(&workDir, "directory", "C", "", "Project directory")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print reports as JSON lines")

	rootCmd.SetVersionTemplate(fmt.Sprintf("config-resolver %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(debugCmd)
}

// Execute runs the root command and closes the log file afterwards.
func Execute() error {
	defer logging.Close()
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, args []string) error {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return fmt.Errorf("env file: %w", err)
		}
	}

	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(logLevel)
	cfg.Output = io.Discard
	if printLogs {
		cfg.Output = os.Stderr
		cfg.Pretty = true
	} else {
		cfg.LogToFile = true
		cfg.LogDir = config.GetPaths().LogDir()
		if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
			cfg.LogToFile = false
		}
	}
	logging.Init(cfg)
	return nil
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

// app bundles what the commands need.
type app struct {
	dir      string
	settings *config.Settings
	files    *loader.FileLoader
	resolver *resolver.Resolver
	bus      *event.Bus
}

func newApp() (*app, error) {
	dir, err := GetWorkDir(workDir)
	if err != nil {
		return nil, err
	}
	settings, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	log := logging.Component("resolver")
	bus := event.NewBus()
	files := loader.New(nil, append(settings.LoaderOptions(), loader.WithLogger(log))...)
	r := resolver.New(resolver.Options{
		Data:         settings.Data,
		Loader:       files,
		BaseDir:      dir,
		Logger:       &log,
		AllowExtends: settings.AllowExtends,
		Bus:          bus,
	})

	logging.Debug().
		Str("directory", dir).
		Strs("settings", settings.Sources).
		Stringer("data", settings.Data).
		Msg("resolver ready")

	return &app{dir: dir, settings: settings, files: files, resolver: r, bus: bus}, nil
}

func newRenderer(w io.Writer) *output.Renderer {
	return output.NewRenderer(w, output.RendererOptions{NoColor: noColor, JSON: jsonOut})
}
