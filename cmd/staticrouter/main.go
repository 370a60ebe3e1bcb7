package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vango-dev/staticrouter/internal/config"
	"github.com/vango-dev/staticrouter/internal/errors"
	"github.com/vango-dev/staticrouter/internal/site"
	"github.com/vango-dev/staticrouter/pkg/assets"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Print(os.Stderr, err)
		os.Exit(1)
	}
}

// cli is the state shared by all commands.
type cli struct {
	v          *viper.Viper
	configPath string
	logLevel   string
	noColor    bool
}

func newRootCmd() *cobra.Command {
	app := &cli{v: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:   "staticrouter",
		Short: "Prerender and serve statically routed sites",
		Long: `staticrouter prerenders every page of a site into a document and a
page state file, serves the result, and can drive the client router
headlessly against a running server.

  • prerender writes index.html and page.state.json per URL
  • serve hosts the output with build-aware caching
  • browse navigates a served site like the client runtime does`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if app.noColor {
				errors.DisableColors()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Config file (default ./staticrouter.yaml)")
	rootCmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&app.noColor, "no-color", false, "Disable colored error output")

	rootCmd.AddCommand(
		prerenderCmd(app),
		serveCmd(app),
		browseCmd(app),
		versionCmd(),
	)
	return rootCmd
}

// bind maps the flags of the running command onto configuration keys. A
// flag overrides the file and the environment only when it is set.
func (app *cli) bind(cmd *cobra.Command, keys map[string]string) {
	for flag, key := range keys {
		if err := app.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind --%s: %v", flag, err))
		}
	}
}

// load reads and validates the configuration.
func (app *cli) load() (*config.Config, error) {
	cfg, err := config.Load(app.v, app.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// componentURL resolves element modules through the configured manifest,
// or unfingerprinted without one.
func componentURL(cfg *config.Config) (func(tag string) string, error) {
	if cfg.Manifest == "" {
		return site.ComponentURL, nil
	}
	m, err := assets.Load(os.DirFS(filepath.Dir(cfg.Manifest)), filepath.Base(cfg.Manifest))
	if err != nil {
		return nil, errors.New("E202").WithDetailf("The manifest %s could not be read.", cfg.Manifest).Wrap(err)
	}
	return assets.NewResolver(m, site.ModulePrefix).ComponentURL, nil
}

// logger writes text records to w at the configured level.
func (app *cli) logger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(app.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
