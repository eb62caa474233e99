// Command collate compares every witness of a text against every other and
// reports, exports or shows the differences.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/collate"
	"github.com/fwojciec/collate/bubbletea"
	"github.com/fwojciec/collate/clipboard"
	"github.com/fwojciec/collate/config"
	"github.com/fwojciec/collate/fs"
	"github.com/fwojciec/collate/jsonl"
	"github.com/fwojciec/collate/lipgloss"
	collateprometheus "github.com/fwojciec/collate/prometheus"
	"github.com/fwojciec/collate/tokendiff"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is injected at build time
var Version = "dev"

func main() {
	runMain(os.Args, os.Stdout, os.Stderr, os.Exit)
}

func runMain(args []string, stdout, stderr io.Writer, exit func(int)) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := Execute(ctx, Version, args[1:], stdout, stderr); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(ctx context.Context, version string, args []string, stdout, stderr io.Writer) error {
	var opts Options
	var progress bool

	rootCmd := &cobra.Command{
		Use:           "collate [flags] FILE...",
		Short:         "Move-aware collation of text witnesses",
		Long:          "Collate compares each document against every other, tracking declared moves, and caches the result per base document.",
		Version:       version,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadSettingsWithFlags(cmd.Flags())
			if err != nil {
				return err
			}
			if err := config.ValidateSettings(settings); err != nil {
				return err
			}
			opts.Paths = args
			opts.MovesPath = settings.Moves
			return run(cmd.Context(), settings, opts, progress, stdout, stderr)
		},
	}
	rootCmd.SetVersionTemplate(`{{.Version}}
`)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.Flags()
	config.RegisterFlags(flags)
	flags.StringVar(&opts.Base, "base", "", "report only this document as base")
	flags.StringArrayVar(&opts.AddMoves, "add-move", nil, "declare a move NAME:START-END=NAME:START-END (saved to --moves)")
	flags.StringVar(&opts.Export, "export", "", "write differences as JSONL to this file, - for stdout")
	flags.BoolVar(&opts.View, "view", false, "browse the --base collation in a terminal viewer")
	flags.BoolVar(&progress, "progress", false, "show collation progress")

	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func run(ctx context.Context, settings *config.Settings, opts Options, progress bool, stdout, stderr io.Writer) error {
	logger, err := config.NewLogger(settings.LogLevel, settings.LogFormat, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	config.Log(settings, logger)

	session, err := fs.NewSessionDir(settings.CacheDir)
	if err != nil {
		return err
	}
	store, err := fs.Open(session, fs.WithMemoryEntries(settings.MemoryEntries))
	if err != nil {
		removeSession(session, logger)
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing store failed", zap.Error(err))
		}
		removeSession(session, logger)
	}()

	osFs := afero.NewOsFs()
	differ := tokendiff.NewDiffer(settings.Tokenizer)
	theme := lipgloss.ThemeFor(nil)

	app := &App{
		Loader:    fs.NewDocumentLoader(osFs).WithWorkers(settings.LoadWorkers),
		Store:     store,
		MoveStore: jsonl.NewMoveStore(osFs),
		FS:        osFs,
		Builder: collate.NewBuilder(differ, differ,
			collate.WithResolution(settings.Resolution),
			collate.WithMinChangeDistance(settings.MinChangeDistance),
		),
		Logger: logger,
		Stdout: stdout,
	}
	viewOpts := []bubbletea.ModelOption{bubbletea.WithTheme(theme)}
	if cb, err := clipboard.NewSystem(); err == nil {
		viewOpts = append(viewOpts, bubbletea.WithClipboard(cb))
	} else {
		logger.Debug("clipboard disabled", zap.Error(err))
	}
	app.Viewer = bubbletea.NewViewer(viewOpts...)
	if progress {
		app.Watcher = bubbletea.NewProgressViewer(
			[]bubbletea.ProgressOption{bubbletea.WithProgressTheme(theme)},
			tea.WithOutput(stderr),
		)
	}

	if settings.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		app.Store = collateprometheus.NewCollationStore(store, reg)
		app.Listeners = append(app.Listeners, collateprometheus.NewMetrics(reg))

		stop := serveMetrics(settings.MetricsAddr, reg, logger)
		defer stop()
	}

	return app.Run(ctx, opts)
}

// serveMetrics serves reg on addr until the returned function is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
