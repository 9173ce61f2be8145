package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/spacelift-io/flows-app-aws-resources/internal/scheduler"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously reconcile declared resources",
	Long: `Runs the reconciler as a long-lived process.

Each declared resource is re-evaluated on the drift check interval.
Drift is reported or corrected according to the resource's
reconcile_on_drift setting, and failed resources are retried on the
next cycle. The process runs until interrupted.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	managed := make([]scheduler.Managed, 0, len(app.cfg.Resources))
	for _, rc := range app.cfg.Resources {
		managed = append(managed, scheduler.Managed{Slot: rc.Name, Instance: app.cfg.Instance(rc)})
	}

	var metricsSrv *http.Server
	if app.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", app.metrics.Handler())
		metricsSrv = &http.Server{Addr: app.cfg.Metrics.Listen, Handler: mux}
		go func() {
			log.Info().Str("listen", metricsSrv.Addr).Msg("Serving metrics")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	interval := app.cfg.Reconciler.DriftCheckInterval.Duration
	log.Info().
		Int("resources", len(managed)).
		Dur("interval", interval).
		Msg("Watching resources")

	app.sched.Watch(ctx, managed, interval)

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	log.Info().Msg("Watch stopped")
	return nil
}
