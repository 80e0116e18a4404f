package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/assessment-client/internal/app"
	"github.com/suPer8Hu/assessment-client/internal/assessment"
	"github.com/suPer8Hu/assessment-client/internal/config"
	"github.com/suPer8Hu/assessment-client/internal/logger"
)

var (
	logMode  string
	page     int
	pageSize int
)

var rootCmd = &cobra.Command{
	Use:   "assessctl",
	Short: "Terminal client for the assessment service",
	Long: `assessctl drives assessment sessions against the backend: list and page through
sessions, start or resume one, chat with the assessor and watch progress.

Configuration comes from the environment (or a .env file): API_BASE_URL, API_TOKEN,
MIRROR_BACKEND, EVENTS_ENABLED and friends.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logMode, "log-mode", "", "log mode: dev or prod (default LOG_MODE)")
	rootCmd.PersistentFlags().IntVar(&page, "page", 1, "session list page")
	rootCmd.PersistentFlags().IntVar(&pageSize, "page-size", 0, "session list page size: 5, 10, 20 or 50 (default DEFAULT_PAGE_SIZE)")

	rootCmd.AddCommand(sessionsCmd, startCmd, showCmd, sendCmd, chatCmd, deleteCmd, cachedCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// openApp loads config and wires the orchestrator. The caller closes the app and syncs the logger.
func openApp(ctx context.Context, confirm assessment.Confirmer) (*app.App, error) {
	cfg := config.Load()
	if logMode != "" {
		cfg.LogMode = logMode
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return app.New(ctx, cfg, log, confirm)
}

// openPage refreshes the list and moves to the page selected by --page and --page-size.
func openPage(ctx context.Context, o *assessment.Orchestrator) error {
	if pageSize != 0 && pageSize != o.View().Pagination.PageSize {
		if err := o.ChangePageSize(ctx, pageSize); err != nil {
			return err
		}
	} else if err := o.Refresh(ctx); err != nil {
		return err
	}
	if page > 1 {
		return o.Paginate(ctx, assessment.ToPage(page))
	}
	return nil
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		a.Log.Warn("close failed", "error", err)
	}
	a.Log.Sync()
}
