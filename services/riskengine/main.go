package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"neurogate/pkg/audit"
	"neurogate/pkg/baseline"
	"neurogate/pkg/metrics"
	otelobs "neurogate/pkg/observability/otel"
	"neurogate/pkg/proof"
	"neurogate/pkg/ratelimit"
	"neurogate/pkg/session"
)

func main() {
	port := getEnv("PORT", "8080")
	auditCapacity := getEnvInt("AUDIT_CAPACITY", audit.DefaultCapacity)
	rateLimit := getEnvInt("RATE_LIMIT_PER_MIN", 120)
	proofSecret := getEnv("PROOF_SECRET", "neurogate-dev-proof-secret")
	proofTTL := getEnvDuration("PROOF_TTL", 5*time.Minute)
	baselineSecret := getEnv("BASELINE_SECRET", "neurogate-dev-baseline-secret")

	var rdb *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("[riskengine] redis unreachable at %s, using in-memory fallbacks: %v", addr, err)
			rdb = nil
		}
	}

	var baselines baseline.Store
	if rdb != nil {
		baselines = baseline.NewRedisStore(rdb, baseline.NewSealer(baselineSecret), 30*24*time.Hour)
		log.Printf("[riskengine] baselines persisted to redis")
	} else {
		baselines = baseline.NewMemoryStore()
		log.Printf("[riskengine] baselines in memory only")
	}

	auditLog := audit.NewLog(auditCapacity)
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		archive, err := newEventArchive(dbURL)
		if err != nil {
			log.Fatalf("[riskengine] event archive init: %v", err)
		}
		defer archive.close()
		auditLog.OnRecord(archive.store)
		log.Printf("[riskengine] event archive enabled")
	}

	manager := session.NewManager(auditLog)
	issuer := proof.NewIssuer([]byte(proofSecret), "neurogate", proofTTL)
	limiter := ratelimit.New(rdb, rateLimit, time.Minute, rateLimit/10)

	mux := http.NewServeMux()
	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg, "riskengine")
	srv := newServer(manager, auditLog, baselines, issuer, limiter, reg)
	srv.routes(mux)
	mux.Handle("/metrics", reg)

	// OpenTelemetry tracing (no-op unless built with otelotlp and endpoint set)
	shutdown := otelobs.InitTracer("riskengine")
	defer shutdown(context.Background())

	h := otelobs.HTTPTraceLogMiddleware(mux)
	h = httpMetrics.Middleware(h)
	h = otelobs.WrapHTTPHandler("riskengine", h)

	log.Printf("[riskengine] listening on port %s (audit capacity %d)", port, auditCapacity)
	log.Fatal(http.ListenAndServe(":"+port, h))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("[riskengine] invalid %s=%q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("[riskengine] invalid %s=%q, using %s", key, value, defaultValue)
	}
	return defaultValue
}
