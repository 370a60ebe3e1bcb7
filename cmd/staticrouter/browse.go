package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/staticrouter/internal/config"
	"github.com/vango-dev/staticrouter/internal/errors"
	"github.com/vango-dev/staticrouter/internal/site"
	"github.com/vango-dev/staticrouter/pkg/buildwatch"
	"github.com/vango-dev/staticrouter/pkg/document"
	"github.com/vango-dev/staticrouter/pkg/navigation"
)

func browseCmd(app *cli) *cobra.Command {
	var (
		follow    bool
		watchPath string
	)

	cmd := &cobra.Command{
		Use:   "browse <url> [paths...]",
		Short: "Navigate a served site headlessly",
		Long: `Load a prerendered document and navigate it with the client router.

Each path is pushed in order, the way a link click would, and the
resulting URL and outlet are printed. With --follow, the router keeps
following build changes announced by the server until interrupted.

Examples:
  staticrouter browse http://localhost:8080/ /blogs /blog/first-post
  staticrouter browse --follow http://localhost:8080/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app.bind(cmd, map[string]string{
				"data-dir": "data_dir",
				"manifest": "manifest",
				"dev":      "dev",
			})
			cfg, err := app.load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.runBrowse(ctx, cmd, cfg, args[0], args[1:], follow, watchPath)
		},
	}

	cmd.Flags().String("data-dir", "", "Directory holding blog.yaml (default: built-in data)")
	cmd.Flags().String("manifest", "", "Component module manifest (JSON)")
	cmd.Flags().Bool("dev", false, "Enable development diagnostics")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow build changes until interrupted")
	cmd.Flags().StringVar(&watchPath, "watch-path", "/_build", "Route of the build watch endpoint")

	return cmd
}

func (app *cli) runBrowse(ctx context.Context, cmd *cobra.Command, cfg *config.Config, rawURL string, paths []string, follow bool, watchPath string) error {
	out := cmd.OutOrStdout()
	logger := app.logger(cmd.ErrOrStderr())

	s, err := site.Load(cfg.DataDir)
	if err != nil {
		return errors.New("E202").Wrap(err)
	}
	modules, err := componentURL(cfg)
	if err != nil {
		return err
	}
	doc, err := fetchDocument(ctx, rawURL)
	if err != nil {
		return errors.New("E302").WithDetailf("GET %s failed.", rawURL).Wrap(err)
	}
	history, err := navigation.NewMemoryHistory(rawURL)
	if err != nil {
		return errors.New("E302").Wrap(err)
	}

	r, err := navigation.New(navigation.Config{
		History:      history,
		Document:     doc,
		Routes:       s.Routes(),
		Elements:     site.Elements(),
		ComponentURL: modules,
		Dispatch:     func(fn func()) { fn() },
		Dev:          cfg.Dev,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	defer r.Dispose()

	if err := r.Start(ctx); err != nil {
		return errors.New("E302").Wrap(err)
	}
	printPage(out, r.URL(), doc)

	for _, p := range paths {
		assigned := len(history.Assigned())
		if err := r.Push(ctx, p); err != nil {
			return errors.New("E302").WithDetailf("Navigating to %s failed.", p).Wrap(err)
		}
		if len(history.Assigned()) > assigned {
			info(out, "%s needs a full document load", p)
			continue
		}
		printPage(out, r.URL(), doc)
	}

	if !follow {
		return nil
	}

	wsURL, err := watchURL(rawURL, watchPath)
	if err != nil {
		return errors.New("E302").Wrap(err)
	}
	w, err := buildwatch.NewWatcher(buildwatch.WatcherConfig{
		URL:     wsURL,
		Target:  &buildPrinter{router: r, out: out},
		BuildID: doc.BuildID(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	info(out, "Following builds at %s", wsURL)
	if err := w.Run(ctx); err != nil && !stderrors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// buildPrinter reports build changes and hands them to the router.
type buildPrinter struct {
	router *navigation.Router
	out    io.Writer
}

func (p *buildPrinter) SetBuildID(id string) {
	info(p.out, "Build changed to %s", id)
	p.router.SetBuildID(id)
}

func printPage(w io.Writer, u *url.URL, doc *document.Document) {
	success(w, "%s", u)
	for _, line := range strings.Split(doc.OutletHTML(), "\n") {
		info(w, "%s", line)
	}
}

func fetchDocument(ctx context.Context, rawURL string) (*document.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return document.Parse(resp.Body)
}

// watchURL returns the websocket address of the watch route on the origin
// of rawURL.
func watchURL(rawURL, watchPath string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return u.ResolveReference(&url.URL{Path: watchPath}).String(), nil
}
