package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"departureboard/log"

	"github.com/morikuni/failure/v2"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// openBrowser is replaced in tests.
var openBrowser = browser.OpenURL

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the board over HTTP and websocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.resolve(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	cfg.bindServeFlags(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *Config) error {
	source, err := newSource(ctx, cfg)
	if err != nil {
		return err
	}

	a := &app{
		ctx:    ctx,
		cfg:    cfg,
		source: newSharedSource(source, cfg.FetchTimeout, cfg.SnapshotTTL),
		hub:    newHub(),
	}
	mux := http.NewServeMux()
	a.registerRoutes(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return failure.Wrap(err, failure.Message("HTTP server failed"))
	}
	boardURL := fmt.Sprintf("http://localhost:%d/", ln.Addr().(*net.TCPAddr).Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "url", boardURL, "station", cfg.Station.Station.Name)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return failure.Wrap(err, failure.Message("HTTP server failed"))
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown initiated")
		a.hub.closeAll()

		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Error("HTTP server shutdown error", "error", err)
			return err
		}
		log.Info("HTTP server shut down successfully")
		return nil
	})

	if cfg.Open {
		if err := openBrowser(boardURL); err != nil {
			log.Warn("could not open browser", "error", err)
		}
	}

	return g.Wait()
}
