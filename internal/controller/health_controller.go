package controller

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// HealthController reports service liveness and dependency readiness.
type HealthController struct {
	service     string
	pool        *pgxpool.Pool
	redisClient *redis.Client
}

// NewHealthController creates a HealthController. Pool and redis client are
// optional; absent dependencies are skipped in readiness checks.
func NewHealthController(service string, pool *pgxpool.Pool, redisClient *redis.Client) *HealthController {
	return &HealthController{service: service, pool: pool, redisClient: redisClient}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}

// Health handles GET /health
func (h *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Service:   h.service,
		Timestamp: time.Now().UTC(),
	})
}

// Liveness handles GET /health/live
func (h *HealthController) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready
func (h *HealthController) Readiness(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	if h.pool != nil {
		if err := h.pool.Ping(r.Context()); err != nil {
			checks["postgres"] = "unhealthy: " + err.Error()
			healthy = false
		} else {
			checks["postgres"] = "healthy"
		}
	}
	if h.redisClient != nil {
		if err := h.redisClient.Ping(r.Context()).Err(); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
			healthy = false
		} else {
			checks["redis"] = "healthy"
		}
	}

	status := http.StatusOK
	overall := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "not_ready"
	}
	writeJSON(w, status, map[string]any{"status": overall, "checks": checks})
}
