package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/icann-compliance/mosapi-client/internal/adapter/mailer"
	"github.com/icann-compliance/mosapi-client/internal/adapter/persistence"
	"github.com/icann-compliance/mosapi-client/internal/adapter/secrets"
	"github.com/icann-compliance/mosapi-client/internal/adapter/sessioncache"
	"github.com/icann-compliance/mosapi-client/internal/config"
	"github.com/icann-compliance/mosapi-client/internal/core/ports"
	"github.com/icann-compliance/mosapi-client/internal/ingester"
	"github.com/icann-compliance/mosapi-client/internal/mosapi"
	"github.com/icann-compliance/mosapi-client/internal/report"
)

// This binary runs one catch-up ingestion pass over every configured
// TLD, then sends the abuse-report email for yesterday's check date,
// and exits. It is meant to be invoked from cron, not run as a daemon.
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
	} else {
		cache = sessioncache.NewMemory()
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
	metricaClient := mosapi.NewDomainMetricaClient(authClient)

	ing := ingester.New(metricaClient, store)

	for _, tld := range cfg.Tlds {
		log.Printf("ingesting %s...", tld)
		if err := ing.IngestForTld(ctx, tld); err != nil {
			log.Printf("ingest failed for %s: %v", tld, err)
		}
	}

	mailClient := mailer.NewHTTPMailer(os.Getenv("MAIL_API_ENDPOINT"), os.Getenv("MAIL_API_KEY"))
	publisher := report.NewPublisher(store, mailClient, cfg.AbuseEmailAddress)
	checkDate := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	if err := publisher.PublishDaily(ctx, cfg.Tlds, checkDate); err != nil {
		log.Printf("abuse report publish failed: %v", err)
	}

	log.Println("ingestion pass complete")
}
