package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/staticrouter/internal/config"
	"github.com/vango-dev/staticrouter/internal/errors"
	"github.com/vango-dev/staticrouter/pkg/buildwatch"
	"github.com/vango-dev/staticrouter/pkg/document"
	"github.com/vango-dev/staticrouter/pkg/metrics"
	"github.com/vango-dev/staticrouter/pkg/server"
)

// pollInterval is how often a watching server checks the output for a new
// build.
const pollInterval = 2 * time.Second

func serveCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve prerendered output",
		Long: `Serve the output directory over HTTP.

Documents and state files of other builds are revalidated on every
request; state files of the served build are cached as immutable.
With --watch, clients connected to /_build learn about new builds as
soon as the output is prerendered again.

Examples:
  staticrouter serve
  staticrouter serve --addr=:3000 --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.bind(cmd, map[string]string{
				"output":  "output",
				"addr":    "server.addr",
				"metrics": "server.metrics",
				"watch":   "server.watch",
			})
			cfg, err := app.load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.runServe(ctx, cmd, cfg)
		},
	}

	cmd.Flags().StringP("output", "o", "", "Directory to serve (default dist)")
	cmd.Flags().String("addr", "", "Address to listen on (default :8080)")
	cmd.Flags().Bool("metrics", true, "Expose Prometheus metrics at /metrics")
	cmd.Flags().Bool("watch", false, "Announce new builds to clients at /_build")

	return cmd
}

func (app *cli) runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	logger := app.logger(cmd.ErrOrStderr())

	if fi, err := os.Stat(cfg.Output); err != nil || !fi.IsDir() {
		e := errors.New("E300").WithDetailf("%s is not a directory.", cfg.Output)
		if err != nil {
			e = e.Wrap(err)
		}
		return e
	}
	output := os.DirFS(cfg.Output)

	buildID, err := readBuildID(output)
	if err != nil {
		logger.Warn("could not read build id from output", "error", err)
		buildID = cfg.BuildID
	}

	var m *metrics.Metrics
	if cfg.Server.Metrics {
		m = metrics.New()
	}

	var hub *buildwatch.Hub
	if cfg.Server.Watch {
		hub = buildwatch.NewHub(buildwatch.HubConfig{
			BuildID: buildID,
			Logger:  logger,
			Metrics: m,
		})
		go pollBuild(ctx, output, hub, pollInterval, logger)
	}

	srv, err := server.New(server.Config{
		Address: cfg.Server.Addr,
		Output:  output,
		BuildID: buildID,
		Metrics: m,
		Hub:     hub,
		Logger:  logger,
	})
	if err != nil {
		return errors.New("E301").Wrap(err)
	}

	info(cmd.OutOrStdout(), "Serving %s on %s (build %s)", filepath.Clean(cfg.Output), cfg.Server.Addr, buildID)
	if err := srv.Run(ctx); err != nil {
		return errors.New("E301").Wrap(err)
	}
	return nil
}

// readBuildID returns the build id stamped on the root document.
func readBuildID(output fs.FS) (string, error) {
	f, err := output.Open("index.html")
	if err != nil {
		return "", err
	}
	defer f.Close()

	doc, err := document.Parse(f)
	if err != nil {
		return "", err
	}
	return doc.BuildID(), nil
}

// pollBuild publishes the build id of the output whenever it changes.
func pollBuild(ctx context.Context, output fs.FS, hub *buildwatch.Hub, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		id, err := readBuildID(output)
		if err != nil {
			logger.Debug("build id unavailable", "error", err)
			continue
		}
		if id != "" && id != hub.BuildID() {
			hub.Publish(id)
		}
	}
}
