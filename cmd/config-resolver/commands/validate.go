package commands

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"
)

var validatePost bool

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate configuration files",
	Long: `Check each file against the preValidate rules. With --post the file is
resolved first and the result is checked against the postValidate rules
(resolution itself pre-validates every file in the chain).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validatePost, "post", false, "Resolve and run post-validation")
}

var errInvalid = errors.New("validation failed")

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	r := newRenderer(cmd.OutOrStdout())

	failed := false
	for _, path := range args {
		if validatePost {
			_, err = a.resolver.RunFile(path)
		} else {
			err = preValidateFile(a, path)
		}
		if err != nil {
			failed = true
			r.Invalid(path, err)
			continue
		}
		r.Valid(path)
	}

	if failed {
		return errInvalid
	}
	return nil
}

func preValidateFile(a *app, path string) error {
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.dir, path)
	}
	cfg, err := a.files.ReadFile(path)
	if err != nil {
		return err
	}
	return a.resolver.PreValidate(cfg, path)
}
