package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/pulse/internal/api"
	"github.com/joescharf/pulse/internal/daemon"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server exposing project, health, spotlight and workspace
endpoints under /api/v1. By default it listens on port 8080.

Use 'pulse serve status' and 'pulse serve stop' to inspect or stop a
running server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context())
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the API server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))

	serveCmd.AddCommand(serveStatusCmd)
	serveCmd.AddCommand(serveStopCmd)
	rootCmd.AddCommand(serveCmd)
}

// pidFile returns the PID file for the API server inside state_dir.
func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("state_dir"), "pulse-serve.pid"))
}

func serveRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	sc, err := newScorer()
	if err != nil {
		return err
	}
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	pf := pidFile()
	if err := pf.Acquire(); err != nil {
		return fmt.Errorf("server %w (pid file %s)", err, pf.Path)
	}
	defer func() { _ = pf.Release() }()

	srv := api.NewServer(s, sc,
		api.WithCatalog(cat),
		api.WithLogger(logger),
		api.WithSpotlightLimit(viper.GetInt("spotlight.limit")),
	)
	addr := fmt.Sprintf(":%d", viper.GetInt("port"))
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving API", "addr", "http://localhost"+addr, "locale", cat.Lang)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func serveStatusRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		ui.Info("API server is not running")
		return nil
	}
	ui.Success("API server running (pid %d) on port %d", pid, viper.GetInt("port"))
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		return fmt.Errorf("API server is not running")
	}
	if dryRun {
		ui.DryRunMsg("Would stop API server (pid %d)", pid)
		return nil
	}
	if err := pf.Signal(stopSignal()); err != nil {
		return fmt.Errorf("stop pid %d: %w", pid, err)
	}
	ui.Success("Sent stop signal to API server (pid %d)", pid)
	return nil
}
