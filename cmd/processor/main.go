package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcosta/payflow/internal/bootstrap"
	"github.com/mcosta/payflow/internal/controller"
	"github.com/mcosta/payflow/internal/domain/transaction"
	"github.com/mcosta/payflow/internal/events"
	infraRedis "github.com/mcosta/payflow/internal/infrastructure/redis"
	"github.com/mcosta/payflow/internal/providers"
	"github.com/mcosta/payflow/internal/repository/postgres"
	"github.com/mcosta/payflow/internal/service"
	"github.com/mcosta/payflow/internal/store/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "payment-processor", "payflow")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Stores ---
	var txRepo transaction.Repository
	if app.Pool != nil {
		txRepo = postgres.NewTransactionRepository(app.Pool)
	} else {
		txRepo = memory.NewTransactionStore()
	}
	walletRepo := memory.NewWalletStore()
	sessionRepo := memory.NewSessionStore()

	// --- Providers ---
	var gateway providers.Gateway
	if app.Config.Gateway.Driver == "sim" {
		gateway = providers.NewSimGateway(app.Config.Gateway.Name,
			providers.WithFailureRate(app.Config.Gateway.FailureRate),
			providers.WithTimeoutRate(app.Config.Gateway.TimeoutRate),
			providers.WithLatency(app.Config.Gateway.Latency),
		)
	} else {
		gateway = providers.NewStaticGateway(app.Config.Gateway.Name)
	}
	cardCfg := providers.CardConfig{
		MinCardLength: app.Config.Card.MinLength,
		MaxCardLength: app.Config.Card.MaxLength,
		MinCVVLength:  app.Config.Card.MinCVVLength,
		MaxCVVLength:  app.Config.Card.MaxCVVLength,
	}
	providerFactory := providers.NewFactory(
		providers.NewCardProvider(gateway, cardCfg),
		providers.NewPayPalProvider(gateway),
		providers.NewStripeProvider(gateway, cardCfg),
		providers.NewWalletProvider(walletRepo),
	)

	// --- Events ---
	bus := events.NewBus()
	defer bus.Close()
	var publisher events.Publisher = bus
	if app.Config.Events.Driver == "redis" && app.Redis != nil {
		publisher = events.Multi{bus, infraRedis.NewStreamPublisher(app.Redis)}
	}

	// --- Services ---
	paymentService := service.NewPaymentService(txRepo, providerFactory, publisher, app.Metrics, app.Logger)
	sessionService := service.NewSessionService(sessionRepo, app.Config.Session.TTL)

	var idempotencyStore *infraRedis.IdempotencyStore
	if app.Redis != nil {
		idempotencyStore = infraRedis.NewIdempotencyStore(app.Redis, app.Config.Redis.IdempotencyTTL)
	}

	router := controller.NewProcessorRouter(controller.ProcessorRouterDeps{
		Pool:             app.Pool,
		RedisClient:      app.Redis,
		PaymentService:   paymentService,
		SessionService:   sessionService,
		IdempotencyStore: idempotencyStore,
		Metrics:          app.Metrics,
		ServerConfig:     app.Config.Server,
	})

	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
