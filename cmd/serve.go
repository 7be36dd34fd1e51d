package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/emotune/internal/server"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// Serve runs the control surface until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	source, err := r.source("")
	if err != nil {
		return err
	}

	ctl, closeFn, err := r.newController(source, nil)
	if err != nil {
		return err
	}
	defer closeFn()

	settings := ctl.Init(ctx)
	r.logger.Info("session ready", "session_id", ctl.SessionID(), "songs_before_recheck", settings.SongsBeforeRecheck)

	if cmd.Bool("start-camera") {
		if err := ctl.StartCamera(ctx); err != nil {
			return err
		}
	}

	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger))
	router.Handler(server.NewControlHandler(ctl, r.logger))

	srv := server.NewHTTPServer(addr, router)
	return r.serve(ctx, srv)
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func (r *Runner) serve(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.logger.Info("control surface listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		r.logger.Info("shutting down control surface")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
