package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/config"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/history"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/output"
)

var (
	historyFormat string
	historyKeep   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded resolutions",
	Long: `Resolutions are recorded by 'resolve --save' and by 'watch'. Records live
in the cache directory and are named by their resolution ID.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded resolutions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store := historyStore()
		ids, err := store.List(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, id := range ids {
			rec, err := store.Get(ctx, id)
			if err != nil {
				fmt.Fprintf(out, "%s  (unreadable: %v)\n", id, err)
				continue
			}
			fmt.Fprintf(out, "%s  %s  %s  %d parent(s)\n", rec.ID, rec.Time.Local().Format("2006-01-02 15:04:05"), rec.Source, len(rec.Chain))
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a recorded resolution (the newest when no id is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store := historyStore()

		var (
			rec history.Record
			err error
		)
		if len(args) == 1 {
			rec, err = store.Get(ctx, args[0])
		} else {
			rec, err = store.Latest(ctx, "")
		}
		if err != nil {
			return err
		}

		text, err := output.Format(rec.Config, historyFormat)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest records",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := historyStore().Prune(cmd.Context(), historyKeep)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d record(s)\n", n)
		return nil
	},
}

func init() {
	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", output.FormatJSON, "Output format (json|yaml)")
	historyPruneCmd.Flags().IntVar(&historyKeep, "keep", 20, "Number of records to keep")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
}

func historyStore() *history.Store {
	return history.New(nil, config.GetPaths().HistoryDir())
}
