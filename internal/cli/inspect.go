package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koustreak/schemagen/internal/schema"
	"github.com/koustreak/schemagen/internal/typemap"
)

func newInspectCmd(a *app) *cobra.Command {
	var types bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the introspected schema as YAML",
		Long: `Print the schema as YAML. The output can be saved and fed back with --from
to generate without a database.

With --types, print the native types the configured driver maps and the
type names --override accepts instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if types {
				driver := a.cfg.Database.Driver
				fmt.Fprintf(out, "native %s types:\n  %s\n", driver, strings.Join(typemap.SupportedTypes(driver), "\n  "))
				fmt.Fprintf(out, "override kinds:\n  %s\n", strings.Join(typemap.Kinds(), "\n  "))
				return nil
			}

			opts, err := a.options()
			if err != nil {
				return err
			}
			info, err := a.runner().Inspect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return schema.WriteSnapshot(out, info)
		},
	}
	cmd.Flags().BoolVar(&types, "types", false, "list supported column types instead of connecting")
	return cmd
}
