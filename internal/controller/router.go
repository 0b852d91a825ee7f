package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcosta/payflow/internal/infrastructure/config"
	"github.com/mcosta/payflow/internal/infrastructure/observability"
	payflowRedis "github.com/mcosta/payflow/internal/infrastructure/redis"
	customMW "github.com/mcosta/payflow/internal/middleware"
	"github.com/mcosta/payflow/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// ProcessorRouterDeps wires the payment processor's HTTP surface.
type ProcessorRouterDeps struct {
	Pool             *pgxpool.Pool
	RedisClient      *redis.Client
	PaymentService   *service.PaymentService
	SessionService   *service.SessionService
	IdempotencyStore *payflowRedis.IdempotencyStore
	Metrics          *observability.Metrics
	ServerConfig     config.ServerConfig
}

// NewProcessorRouter builds the processor's router.
func NewProcessorRouter(deps ProcessorRouterDeps) *chi.Mux {
	r := baseRouter(deps.ServerConfig, deps.Metrics)

	healthH := NewHealthController("payment-processor", deps.Pool, deps.RedisClient)
	paymentH := NewPaymentController(deps.PaymentService, deps.SessionService)
	sessionH := NewSessionController(deps.SessionService)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/payments", func(r chi.Router) {
		process := chi.Chain()
		if deps.IdempotencyStore != nil {
			process = chi.Chain(customMW.Idempotency(deps.IdempotencyStore))
		}

		r.With(process...).Post("/process", paymentH.Process)
		r.Post("/validate", paymentH.Validate)
		r.Get("/transaction/{id}", paymentH.GetTransaction)
		r.Get("/order/{orderId}", paymentH.ListByOrder)
		r.Get("/transactions", paymentH.ListRange)
		r.With(process...).Post("/refund", paymentH.Refund)

		r.Post("/session", sessionH.Create)
		r.Get("/session/{id}", sessionH.Get)
	})

	return r
}

// VerifierRouterDeps wires the payment verifier's HTTP surface.
type VerifierRouterDeps struct {
	RedisClient         *redis.Client
	VerificationService *service.VerificationService
	Metrics             *observability.Metrics
	ServerConfig        config.ServerConfig
}

// NewVerifierRouter builds the verifier's router.
func NewVerifierRouter(deps VerifierRouterDeps) *chi.Mux {
	r := baseRouter(deps.ServerConfig, deps.Metrics)

	healthH := NewHealthController("payment-verifier", nil, deps.RedisClient)
	verifyH := NewVerificationController(deps.VerificationService)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/verify", func(r chi.Router) {
		r.Post("/transaction", verifyH.VerifyTransaction)
		r.Get("/status/{verificationId}", verifyH.GetStatus)
		r.Get("/order/{orderId}", verifyH.VerifyOrder)
		r.Post("/reconcile", verifyH.Reconcile)
		r.Get("/reconcile/{id}", verifyH.GetReconciliation)
	})

	return r
}

// baseRouter applies the middleware chain shared by both services.
func baseRouter(cfg config.ServerConfig, metrics *observability.Metrics) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.SecurityHeaders())
	r.Use(customMW.RateLimit(cfg.RateLimit.Max, cfg.RateLimit.Window))
	if metrics != nil {
		r.Use(customMW.Metrics(metrics))
	}

	return r
}
