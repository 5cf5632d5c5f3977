package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/icann-compliance/mosapi-client/internal/adapter/handler"
	"github.com/icann-compliance/mosapi-client/internal/adapter/mailer"
	"github.com/icann-compliance/mosapi-client/internal/adapter/metrics"
	"github.com/icann-compliance/mosapi-client/internal/adapter/persistence"
	"github.com/icann-compliance/mosapi-client/internal/adapter/secrets"
	"github.com/icann-compliance/mosapi-client/internal/adapter/sessioncache"
	"github.com/icann-compliance/mosapi-client/internal/config"
	"github.com/icann-compliance/mosapi-client/internal/core/ports"
	"github.com/icann-compliance/mosapi-client/internal/ingester"
	"github.com/icann-compliance/mosapi-client/internal/mosapi"
	"github.com/icann-compliance/mosapi-client/internal/orchestrator"
	"github.com/icann-compliance/mosapi-client/internal/report"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("unable to connect to database: %v", err)
	}
	defer dbPool.Close()

	store := persistence.NewPgThreatMatchStore(dbPool)

	var cache ports.SessionCache
	if cfg.RedisAddr != "" {
		cache = sessioncache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, 0)
		log.Printf("🔐 using Redis-backed session cache at %s", cfg.RedisAddr)
	} else {
		cache = sessioncache.NewMemory()
		log.Println("🔐 using in-memory session cache (single process only)")
	}

	secretStore := secrets.NewEnvStore()
	cert, err := secretStore.GetSecret(ctx, "mosapiClientCert")
	if err != nil {
		log.Fatalf("missing mosapiClientCert: %v", err)
	}
	key, err := secretStore.GetSecret(ctx, "mosapiClientKey")
	if err != nil {
		log.Fatalf("missing mosapiClientKey: %v", err)
	}

	rootURL := strings.TrimSuffix(cfg.MosapiURL, "/") + "/" + cfg.EntityType
	transport, err := mosapi.NewTransport(mosapi.TransportConfig{Cert: cert, Key: key}, rootURL)
	if err != nil {
		log.Fatalf("unable to build mTLS transport: %v", err)
	}

	authCfg := mosapi.DefaultClientConfig(
		func(ctx context.Context, tld string) (string, error) { return secretStore.GetSecret(ctx, "mosapi_username_"+tld) },
		func(ctx context.Context, tld string) (string, error) { return secretStore.GetSecret(ctx, "mosapi_password_"+tld) },
	)
	authCfg.CircuitBreakerEnabled = cfg.CircuitBreakerEnabled
	authClient := mosapi.NewAuthenticatedClient(transport, cache, authCfg)

	monitoring := mosapi.NewServiceMonitoringClient(authClient)
	stateService := mosapi.NewStateService(monitoring)
	metricaClient := mosapi.NewDomainMetricaClient(authClient)

	sink := metrics.NewSink()
	orch := orchestrator.New(stateService, monitoring, sink, orchestrator.Config{
		MaxConcurrentSessions: cfg.TldThreadCount,
		MetricsQueueSize:      256,
		MetricsWorkerCount:    cfg.MetricsThreadCount,
	})
	orch.Start(ctx)

	ing := ingester.New(metricaClient, store)

	mailClient := mailer.NewHTTPMailer(os.Getenv("MAIL_API_ENDPOINT"), os.Getenv("MAIL_API_KEY"))
	publisher := report.NewPublisher(store, mailClient, cfg.AbuseEmailAddress)

	restHandler := handler.NewRestHandler(orch, ing, publisher, cfg.Tlds, cfg.Services)

	router := mux.NewRouter()
	router.HandleFunc("/healthz", restHandler.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/v1/state", restHandler.GetState).Methods(http.MethodPost)
	router.HandleFunc("/v1/details", restHandler.GetServiceDetails).Methods(http.MethodPost)
	router.HandleFunc("/v1/ingest", restHandler.TriggerIngest).Methods(http.MethodPost)
	router.HandleFunc("/v1/report", restHandler.TriggerReport).Methods(http.MethodPost)
	router.Use(loggingMiddleware)

	listenAddr := os.Getenv("MOSAPI_ADMIN_LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = "localhost:8090"
	}

	srv := &http.Server{
		Addr:         listenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("🚀 MoSAPI admin server listening on %s\n", listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
