package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koustreak/schemagen/internal/emit"
	"github.com/koustreak/schemagen/internal/errs"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fail when the generated package is out of date",
		Long: `Render the package in memory and compare it with the output directory.
Nothing is written. Exits 1 and lists the differing files when the directory
is stale, which makes it suitable as a CI step.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options()
			if err != nil {
				return err
			}
			res, err := a.runner().Render(cmd.Context(), opts)
			if err != nil {
				return err
			}
			diff, err := emit.Compare(emit.OS, opts.OutputDir, res.Artifacts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if diff.Empty() {
				fmt.Fprintf(out, "%s is up to date\n", opts.OutputDir)
				return nil
			}
			for _, p := range diff.Added {
				fmt.Fprintf(out, "+ %s\n", p)
			}
			for _, p := range diff.Changed {
				fmt.Fprintf(out, "~ %s\n", p)
			}
			for _, p := range diff.Removed {
				fmt.Fprintf(out, "- %s\n", p)
			}
			return errs.Newf(errs.ErrKindInvalidInput, "%s is stale: run schemagen generate", opts.OutputDir)
		},
	}
}
