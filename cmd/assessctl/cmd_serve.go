package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/suPer8Hu/assessment-client/internal/assessment"
	"github.com/suPer8Hu/assessment-client/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local presentation API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, assessment.ConfirmFromContext)
		if err != nil {
			return err
		}
		defer closeApp(a)

		addr := serveAddr
		if addr == "" {
			addr = a.Cfg.HTTPAddr
		}
		if a.Cfg.LogMode == "prod" {
			gin.SetMode(gin.ReleaseMode)
		}

		if err := a.Orch.Refresh(ctx); err != nil {
			a.Log.Warn("initial session list refresh failed", "error", err)
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           httpapi.NewRouter(a.Orch, a.Mirror, a.Log),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.Log.Info("listening", "addr", addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		a.Log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default HTTP_ADDR)")
}
