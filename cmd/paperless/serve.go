package main

import (
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	paperless "github.com/glimte/paperless-go"
	"github.com/glimte/paperless-go/config"
	"github.com/glimte/paperless-go/health"
	"github.com/glimte/paperless-go/internal/httpapi"
	"github.com/glimte/paperless-go/sse"
	"github.com/glimte/paperless-go/worker"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the result listeners and the live event streams",
		Long: `serve consumes OCR and summary events, records them and forwards them to
connected SSE clients. Health endpoints are served on the same address.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			clientOpts := []paperless.ClientOption{
				paperless.WithBroadcastBufferSize(cfg.Broadcast.BufferSize),
				paperless.WithBacklogLimit(cfg.Health.MaxQueueDepth),
			}
			if cfg.Streams.OCR.Enabled {
				clientOpts = append(clientOpts, paperless.WithOcrEventStream())
			}
			if cfg.Streams.GenAI.Enabled {
				clientOpts = append(clientOpts, paperless.WithGenAIEventStream())
			}

			client, err := connect(ctx, cfg, logger, clientOpts...)
			if err != nil {
				logger.Error("broker unavailable", "error", err)
				return err
			}
			defer client.Close()

			registry := health.NewRegistry()
			registry.SetMetadata("service", "paperless")
			registry.SetMetadata("version", version)
			client.RegisterHealthChecks(registry)
			registry.Register(health.NewGoroutineChecker(5000, 20000))

			routes := httpapi.Routes{
				StreamOptions: []sse.HandlerOption{
					sse.WithHeartbeat(config.Heartbeat(cfg)),
					sse.WithLogger(logger),
				},
				Limiter: httpapi.NewRateLimiter(cfg.Streams.RatePerMin, cfg.Streams.Burst, logger),
				Health:  registry,
				Logger:  logger,
			}
			if events := client.OcrEvents(); events != nil {
				routes.OcrEvents = events
				routes.OcrPath = cfg.Streams.OCR.Path
			}
			if events := client.GenAIEvents(); events != nil {
				routes.GenAIEvents = events
				routes.GenAIPath = cfg.Streams.GenAI.Path
			}

			ln, err := net.Listen("tcp", cfg.HTTP.Addr)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Handler:           httpapi.NewRouter(routes),
				ReadHeaderTimeout: config.ReadHeaderTimeout(cfg),
			}

			store := worker.LoggingStore{Logger: logger}
			g, gctx := errgroup.WithContext(ctx)
			if cfg.Workers.OcrResults {
				g.Go(func() error { return client.ListenOcrResults(gctx, store) })
			}
			if cfg.Workers.GenAIResults {
				g.Go(func() error { return client.ListenGenAIResults(gctx, store) })
			}
			g.Go(func() error {
				return httpapi.Serve(gctx, srv, ln, config.ShutdownTimeout(cfg), logger)
			})

			err = g.Wait()
			if err != nil && ctx.Err() == nil {
				logger.Error("serve stopped", "error", err)
				return err
			}
			logger.Info("shutdown complete")
			return nil
		},
	}
}
