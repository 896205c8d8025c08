// Package serve runs the HTTP API and the MQTT ingestion subscriber.
package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/securitas/internal/api"
	"github.com/tphakala/securitas/internal/app"
	"github.com/tphakala/securitas/internal/buildinfo"
	"github.com/tphakala/securitas/internal/conf"
	"github.com/tphakala/securitas/internal/ingest"
	"github.com/tphakala/securitas/internal/logger"
	"github.com/tphakala/securitas/internal/telemetry"
)

// Command creates the serve command.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the detection API and ingestion",
		Long:  "Serve the detection HTTP API and, when enabled, consume detections from MQTT until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, settings, build)
		},
	}
}

func run(ctx context.Context, settings *conf.Settings, build *buildinfo.Context) error {
	log := logger.Global().Module("serve")
	log.Info("starting", logger.String("version", build.Version()), logger.String("instance", settings.Main.Name))

	flush, err := telemetry.Init(&settings.Sentry, build)
	if err != nil {
		return err
	}
	defer flush()

	a, err := app.New(settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("failed to close store", logger.Error(err))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	if settings.Ingest.MQTT.Enabled {
		sub := ingest.NewSubscriber(ingest.ConfigFromSettings(settings), a.Detections, a.Metrics.MQTT, nil)
		if err := sub.Start(gctx); err != nil {
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			sub.Stop()
			return nil
		})
	}

	if settings.WebServer.Enabled {
		srv := api.NewServer(&settings.WebServer,
			api.NewController(a.Detections, a.Statistics, nil),
			a.Metrics.Handler(), nil)
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			return srv.Shutdown(context.WithoutCancel(gctx))
		})
	}

	if !settings.WebServer.Enabled && !settings.Ingest.MQTT.Enabled {
		log.Warn("neither the web server nor MQTT ingestion is enabled, nothing to serve")
		return nil
	}

	err = g.Wait()
	log.Info("stopped")
	return err
}
