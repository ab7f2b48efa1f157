package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGenerateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Introspect the schema and write the generated package",
		Long: `Introspect the configured schema, map every column to a Go type and replace
the output directory with the rendered package. The directory is swapped in
atomically: on any failure the previous generation is left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options()
			if err != nil {
				return err
			}
			res, err := a.runner().Generate(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generated %d tables from %s into %s\n",
				len(res.Schema.Tables), res.Schema.Name, opts.OutputDir)
			return nil
		},
	}
}
