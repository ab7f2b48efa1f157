package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/koustreak/schemagen/internal/publish"
)

func newPublishCmd(a *app) *cobra.Command {
	var (
		bucket  string
		prefix  string
		force   bool
		dryRun  bool
		presign time.Duration
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the generated package to an object store",
		Long: `Upload the files listed in the output directory's manifest to a MinIO or
S3-compatible bucket (MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY).
Files unchanged since the last publish are skipped and objects under the
prefix that the manifest no longer lists are removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("bucket") {
				a.cfg.Store.DefaultBucket = bucket
			}
			if cmd.Flags().Changed("prefix") {
				a.cfg.Prefix = prefix
			}

			store, err := a.openStore(cmd.Context(), &a.cfg.Store)
			if err != nil {
				return err
			}
			defer store.Close()

			p := publish.New(store, a.log)
			opts := publish.Options{
				Bucket: a.cfg.Store.DefaultBucket,
				Prefix: a.cfg.Prefix,
				Force:  force,
				DryRun: dryRun,
			}
			rep, err := p.Publish(cmd.Context(), a.cfg.OutputDir, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			verb := "uploaded"
			if dryRun {
				verb = "would upload"
			}
			for _, f := range rep.Uploaded {
				fmt.Fprintf(out, "%s %s\n", verb, publish.Key(opts.Prefix, f))
			}
			for _, k := range rep.Removed {
				fmt.Fprintf(out, "removed %s\n", k)
			}
			fmt.Fprintf(out, "%d uploaded, %d unchanged, %d removed\n", len(rep.Uploaded), len(rep.Unchanged), len(rep.Removed))

			if presign > 0 && !dryRun {
				u, err := p.ManifestURL(cmd.Context(), opts, presign)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "manifest: %s\n", u)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&bucket, "bucket", "", "destination bucket (MINIO_BUCKET)")
	f.StringVar(&prefix, "prefix", "", "object key prefix (PUBLISH_PREFIX)")
	f.BoolVar(&force, "force", false, "upload every file even if unchanged")
	f.BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	f.DurationVar(&presign, "presign", 0, "print a presigned manifest URL valid for this long")
	return cmd
}
