package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcosta/payflow/internal/bootstrap"
	"github.com/mcosta/payflow/internal/client"
	"github.com/mcosta/payflow/internal/controller"
	infraRedis "github.com/mcosta/payflow/internal/infrastructure/redis"
	"github.com/mcosta/payflow/internal/service"
	"github.com/mcosta/payflow/internal/store/memory"
	"github.com/mcosta/payflow/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "payment-verifier", "payflow_verifier")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Stores ---
	verifStore := memory.NewVerificationStore()

	// --- Processor client ---
	processorClient := client.NewProcessorClient(client.Config{
		BaseURL:       app.Config.Upstream.BaseURL,
		Timeout:       app.Config.Upstream.RequestTimeout,
		RetryAttempts: app.Config.Upstream.RetryAttempts,
		RetryDelay:    app.Config.Upstream.RetryDelay,
		MaxRetryDelay: app.Config.Upstream.MaxRetryDelay,
		OnRetry: func(uint, error) {
			app.Metrics.ClientRetriesTotal.WithLabelValues("processor").Inc()
		},
	})

	// --- Services ---
	verificationService := service.NewVerificationService(
		verifStore,
		verifStore.Reconciliations(),
		processorClient,
		service.VerificationConfig{
			ProcessingTimeout:    app.Config.Verification.ProcessingTimeout,
			AmountToleranceCents: app.Config.Verification.AmountToleranceC,
			ReconcileWorkers:     app.Config.Verification.ReconcileWorkers,
		},
		app.Metrics,
		app.Logger,
	)

	router := controller.NewVerifierRouter(controller.VerifierRouterDeps{
		RedisClient:         app.Redis,
		VerificationService: verificationService,
		Metrics:             app.Metrics,
		ServerConfig:        app.Config.Server,
	})

	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// Auto-verification consumes payment.processed events from the stream.
	if app.Config.Verification.AutoVerify && app.Redis != nil {
		consumer := infraRedis.NewStreamConsumer(
			app.Redis,
			infraRedis.PaymentStream,
			app.Config.Verification.ConsumerGroup,
			app.Config.InstanceID,
			app.Config.Verification.BatchSize,
			app.Config.Verification.BlockDuration,
		)
		autoVerifier := worker.NewAutoVerifier(
			app.Redis,
			consumer,
			verificationService,
			app.Config.Verification.LockTTL,
			app.Metrics,
			app.Logger,
		)
		g.Go(func() error {
			app.Logger.Info().
				Str("stream", infraRedis.PaymentStream).
				Str("group", app.Config.Verification.ConsumerGroup).
				Msg("Auto-verify worker started")
			return autoVerifier.Run(gCtx)
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		app.Logger.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Verifier error")
	}
	app.Logger.Info().Msg("Verifier exited")
}
