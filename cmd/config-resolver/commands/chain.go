package commands

import (
	"github.com/spf13/cobra"
)

var chainCmd = &cobra.Command{
	Use:   "chain <file>",
	Short: "Show the extends chain of a configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		res, err := a.resolver.RunFile(args[0])
		if err != nil {
			return err
		}
		newRenderer(cmd.OutOrStdout()).Chain(args[0], res)
		return nil
	},
}
