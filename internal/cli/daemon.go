package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/existflow/devpilot/internal/logger"
	"github.com/existflow/devpilot/internal/notify"
	"github.com/existflow/devpilot/internal/sync"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the daily briefing scheduler and background sync",
	Long: `Run in the foreground until interrupted:

  - the daily briefing scheduler, which generates insights once per day
    after the configured time
  - background sync with the server when logged in
  - a Prometheus /metrics endpoint when metrics_addr is set`,
	RunE: runDaemon,
}

var (
	daemonMetricsAddr string
	daemonNoSync      bool
)

func init() {
	daemonCmd.Flags().StringVar(&daemonMetricsAddr, "metrics-addr", "", "Serve /metrics on this address (overrides metrics_addr)")
	daemonCmd.Flags().BoolVar(&daemonNoSync, "no-sync", false, "Do not sync with the server")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if removed, err := app.Notifications.DeleteOlderThan(notify.DefaultPruneAge); err != nil {
		logger.Warn("Failed to prune notifications", logger.Err(err))
	} else if removed > 0 {
		logger.Info("Pruned old notifications", logger.F("removed", removed))
	}
	app.Notifications.Subscribe(func() {
		logger.Debug("Notifications changed", logger.F("unread", app.Notifications.UnreadCount()))
	})

	if !app.Scheduler.Enabled() {
		fmt.Println("ℹ️  Daily briefing is off. Run 'devpilot insight enable' to turn it on.")
	}

	addr := app.Config.MetricsAddr
	if daemonMetricsAddr != "" {
		addr = daemonMetricsAddr
	}
	workers, err := daemonWorkers(app, daemonNoSync, addr, sync.NewClient)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error {
			return w(ctx)
		})
	}

	st := app.Scheduler.Status()
	fmt.Printf("🚀 DevPilot daemon running (briefing at %s). Press Ctrl+C to stop.\n", st.DailyTime)
	logger.Info("Daemon started", logger.F("daily_time", st.DailyTime), logger.F("enabled", st.Enabled))

	if err := g.Wait(); err != nil {
		logger.Error("Daemon stopped with error", logger.Err(err))
		return err
	}
	fmt.Println("👋 Daemon stopped")
	logger.Info("Daemon stopped")
	return nil
}

type worker func(ctx context.Context) error

// daemonWorkers prepares the background workers without starting any, so
// a setup failure leaves nothing running against the database
func daemonWorkers(app *App, noSync bool, metricsAddr string, newClient func() (*sync.Client, error)) ([]worker, error) {
	workers := []worker{app.Scheduler.Run}

	if !noSync {
		client, err := newClient()
		if err != nil {
			return nil, fmt.Errorf("failed to create sync client: %w", err)
		}
		if client.CanAutoSync() {
			watcher := sync.NewWatcher(client, app.DB)
			watcher.SetOnChange(func() {
				logger.Info("Applied remote project changes")
			})
			workers = append(workers, watcher.Run)
		} else {
			logger.Info("Background sync disabled: not logged in")
		}
	}

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		workers = append(workers, func(ctx context.Context) error {
			logger.Info("Serving metrics", logger.F("addr", metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		}, func(ctx context.Context) error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return workers, nil
}
