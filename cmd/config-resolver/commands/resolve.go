package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/history"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/logging"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/output"
)

var (
	resolveFormat string
	resolveQuery  string
	resolveDiff   bool
	resolveSave   bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <file>",
	Short: "Print a resolved configuration",
	Long: `Load a configuration file, resolve its extends chain and print the
result. --query filters the result with a jq expression; --diff shows what
resolution changed relative to the file itself.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveFormat, "format", "f", output.FormatJSON, "Output format (json|yaml)")
	resolveCmd.Flags().StringVarP(&resolveQuery, "query", "q", "", "jq filter applied to the result")
	resolveCmd.Flags().BoolVar(&resolveDiff, "diff", false, "Show a diff between the file and its resolved form")
	resolveCmd.Flags().BoolVar(&resolveSave, "save", false, "Record the resolution in history")
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	res, err := a.resolver.RunFile(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if resolveSave {
		if err := historyStore().Put(cmd.Context(), history.NewRecord(args[0], res)); err != nil {
			return fmt.Errorf("record resolution: %w", err)
		}
		logging.Info().Str("id", res.ID).Msg("resolution recorded")
	}

	if resolveDiff {
		before, err := a.files.ReadFile(res.Files[0])
		if err != nil {
			return err
		}
		beforeText, err := output.Format(before, resolveFormat)
		if err != nil {
			return err
		}
		afterText, err := output.Format(res.Config, resolveFormat)
		if err != nil {
			return err
		}
		newRenderer(out).Diff(output.LineDiff(args[0], beforeText, afterText))
		return nil
	}

	if resolveQuery != "" {
		values, err := output.Query(res.Config, resolveQuery)
		if err != nil {
			return err
		}
		for _, v := range values {
			text, err := output.Format(v, resolveFormat)
			if err != nil {
				return err
			}
			fmt.Fprint(out, text)
		}
		return nil
	}

	text, err := output.Format(res.Config, resolveFormat)
	if err != nil {
		return err
	}
	fmt.Fprint(out, text)
	return nil
}
