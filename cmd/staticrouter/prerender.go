package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/staticrouter/internal/config"
	"github.com/vango-dev/staticrouter/internal/errors"
	"github.com/vango-dev/staticrouter/internal/site"
	"github.com/vango-dev/staticrouter/pkg/prerender"
)

func prerenderCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prerender [paths...]",
		Short: "Prerender the site",
		Long: `Render every page of the site into a document and a page state file.

Without paths, the site's own URLs and the configured urls are rendered.
Output goes to the output directory, or to S3 when s3.bucket is set.

Examples:
  staticrouter prerender
  staticrouter prerender --output=public --build-id=$(git rev-parse HEAD)
  staticrouter prerender /blogs /blog/first-post`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.bind(cmd, map[string]string{
				"output":      "output",
				"build-id":    "build_id",
				"base-url":    "base_url",
				"concurrency": "concurrency",
				"data-dir":    "data_dir",
				"manifest":    "manifest",
				"dev":         "dev",
				"s3-bucket":   "s3.bucket",
				"s3-prefix":   "s3.prefix",
				"s3-region":   "s3.region",
				"s3-endpoint": "s3.endpoint",
			})
			cfg, err := app.load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.runPrerender(ctx, cmd, cfg, args)
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output directory (default dist)")
	cmd.Flags().String("build-id", "", "Build id (default: generated)")
	cmd.Flags().String("base-url", "", "Origin pages are rendered for")
	cmd.Flags().Int("concurrency", 0, "Pages rendered at once")
	cmd.Flags().String("data-dir", "", "Directory holding blog.yaml (default: built-in data)")
	cmd.Flags().String("manifest", "", "Component module manifest (JSON)")
	cmd.Flags().Bool("dev", false, "Enable development diagnostics")
	cmd.Flags().String("s3-bucket", "", "Publish to this S3 bucket")
	cmd.Flags().String("s3-prefix", "", "Key prefix inside the bucket")
	cmd.Flags().String("s3-region", "", "S3 region")
	cmd.Flags().String("s3-endpoint", "", "S3-compatible endpoint")

	return cmd
}

func (app *cli) runPrerender(ctx context.Context, cmd *cobra.Command, cfg *config.Config, paths []string) error {
	out := cmd.OutOrStdout()
	logger := app.logger(cmd.ErrOrStderr())

	s, err := site.Load(cfg.DataDir)
	if err != nil {
		return errors.New("E202").Wrap(err)
	}
	if len(paths) == 0 {
		paths = append(append(paths, s.URLs()...), cfg.URLs...)
	}
	if len(paths) == 0 {
		return errors.New("E201")
	}

	modules, err := componentURL(cfg)
	if err != nil {
		return err
	}
	sink, dest, err := openSink(cfg)
	if err != nil {
		return errors.New("E203").Wrap(err)
	}

	buildID := cfg.EnsureBuildID()
	p, err := prerender.New(prerender.Config{
		Routes:       s.Routes(),
		Sink:         sink,
		BuildID:      buildID,
		BaseURL:      cfg.BaseURL,
		Shell:        s.Shell(),
		ComponentURL: modules,
		Concurrency:  cfg.Concurrency,
		Logger:       logger,
	})
	if err != nil {
		return errors.New("E200").Wrap(err)
	}

	info(out, "Prerendering %d pages for build %s...", len(paths), buildID)
	result, err := p.Run(ctx, paths)
	if err != nil {
		if cfg.PublishesToS3() {
			return errors.New("E203").Wrap(err)
		}
		return errors.New("E200").Wrap(err)
	}

	success(out, "Prerendered %d pages in %s", len(result.Pages), result.Duration.Round(time.Millisecond))
	info(out, "Output: %s", dest)
	return nil
}

// openSink returns where output is written and a description of it.
func openSink(cfg *config.Config) (prerender.Sink, string, error) {
	if cfg.PublishesToS3() {
		client := prerender.NewS3Client(prerender.S3Options{
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		})
		return prerender.NewS3Sink(client, cfg.S3.Bucket, cfg.S3.Prefix),
			fmt.Sprintf("s3://%s/%s", cfg.S3.Bucket, cfg.S3.Prefix), nil
	}
	sink, err := prerender.NewDirSink(cfg.Output)
	if err != nil {
		return nil, "", err
	}
	return sink, cfg.Output, nil
}
