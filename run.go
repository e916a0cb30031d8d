package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messaging-sync/internal/activity"
	"messaging-sync/internal/config"
	"messaging-sync/internal/engine"
	"messaging-sync/internal/handlers"
	"messaging-sync/internal/middleware"
	"messaging-sync/internal/models"
	"messaging-sync/internal/observability"
	"messaging-sync/internal/rabbitmq"
	"messaging-sync/internal/telemetry"
	"messaging-sync/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func newRunCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the sync engine and the local view bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
}

func engineOptions(cfg *config.Config, recorder engine.EventRecorder) engine.Options {
	opts := engine.DefaultOptions()
	opts.Conversations = engine.Cadence{Active: cfg.Sync.ConversationsActive.Duration, Idle: cfg.Sync.ConversationsIdle.Duration}
	opts.Messages = engine.Cadence{Active: cfg.Sync.MessagesActive.Duration, Idle: cfg.Sync.MessagesIdle.Duration}
	opts.Typing = engine.Cadence{Active: cfg.Sync.TypingActive.Duration, Idle: cfg.Sync.TypingIdle.Duration}
	opts.TypingDebounce = cfg.Sync.TypingDebounce.Duration
	opts.TypingDecay = cfg.Sync.TypingDecay.Duration
	opts.Recorder = recorder
	return opts
}

func run(ctx context.Context, cfg *config.Config) error {
	log := observability.Logger()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName, cfg.Telemetry.Environment)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	publisher := rabbitmq.NewPublisher(cfg.Telemetry.AMQPURL, cfg.Telemetry.Exchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	emitter := telemetry.NewEventEmitter(publisher, cfg.Telemetry.RoutingKey, cfg.Telemetry.ServiceName, cfg.Telemetry.Environment)
	log.Info().
		Str("mode", rabbitmq.PublisherMode(publisher)).
		Str("reason", rabbitmq.PublisherNoopReason(publisher)).
		Msg("event publisher ready")

	tracker := activity.NewTracker()
	defer tracker.Close()

	eng := engine.New(newAPIClient(cfg), tracker, engineOptions(cfg, emitter))

	hub := ws.NewHub()
	unsubscribe := eng.Subscribe(func(models.View) { hub.BroadcastLatest(eng.Snapshot) })
	defer unsubscribe()

	eng.Start()
	defer eng.Close()

	bridge := handlers.NewBridgeHandler(eng, tracker)
	bridgeWS := ws.NewBridgeWebSocketHandler(hub, eng.Snapshot)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", bridge.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := router.Group("/", middleware.BridgeAuth(cfg.Bridge.Token))
	bridge.Register(authed)
	authed.GET("/ws", bridgeWS.Handle)
	handlers.RegisterDebugRoutes(authed, emitter, eng, cfg.Bridge.Debug)

	srv := &http.Server{
		Addr:              cfg.Bridge.Listen,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Bridge.Listen).Str("api", cfg.API.BaseURL).Msg("view bridge listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	hub.CloseAll()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
