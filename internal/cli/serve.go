package cli

import (
	"github.com/spf13/cobra"

	"github.com/koustreak/schemagen/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only HTTP preview of the generated code",
		Long: `Render the package once and serve it over HTTP:

  GET  /healthz
  GET  /schema           introspected schema as YAML
  GET  /tables           table summaries as JSON
  GET  /tables/{name}    rendered Go source of one table
  POST /refresh          introspect and render again`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.ServeAddr = addr
			}
			opts, err := a.options()
			if err != nil {
				return err
			}

			srv := server.New(a.runner(), opts, a.log)
			if err := srv.Refresh(cmd.Context()); err != nil {
				return err
			}
			return srv.ListenAndServe(cmd.Context(), a.cfg.ServeAddr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (SERVE_ADDR, default :8089)")
	return cmd
}
