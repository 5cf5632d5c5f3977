package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/icann-compliance/mosapi-client/internal/adapter/secrets"
	"github.com/icann-compliance/mosapi-client/internal/adapter/sessioncache"
	"github.com/icann-compliance/mosapi-client/internal/config"
	"github.com/icann-compliance/mosapi-client/internal/core/ports"
	"github.com/icann-compliance/mosapi-client/internal/mosapi"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: mosapictl <start|stop> --tld <tld>")
	}

	sub := os.Args[1]
	fs := flag.NewFlagSet(sub, flag.ExitOnError)
	tld := fs.String("tld", "", "TLD to start/stop monitoring for")
	fs.Parse(os.Args[2:])

	if *tld == "" {
		log.Fatal("--tld is required")
	}

	cfg := config.Load()
	ctx := context.Background()

	secretStore := secrets.NewEnvStore()
	cert, err := secretStore.GetSecret(ctx, "mosapiClientCert")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	key, err := secretStore.GetSecret(ctx, "mosapiClientKey")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootURL := strings.TrimSuffix(cfg.MosapiURL, "/") + "/" + cfg.EntityType
	transport, err := mosapi.NewTransport(mosapi.TransportConfig{Cert: cert, Key: key}, rootURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var cache ports.SessionCache
	if cfg.RedisAddr != "" {
		cache = sessioncache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, 0)
	} else {
		cache = sessioncache.NewMemory()
		log.Println("no REDIS_ADDR configured: mosapictl start/stop will not see sessions from other processes")
	}
	authCfg := mosapi.DefaultClientConfig(
		func(ctx context.Context, tld string) (string, error) { return secretStore.GetSecret(ctx, "mosapi_username_"+tld) },
		func(ctx context.Context, tld string) (string, error) { return secretStore.GetSecret(ctx, "mosapi_password_"+tld) },
	)
	client := mosapi.NewAuthenticatedClient(transport, cache, authCfg)

	switch sub {
	case "start":
		if err := client.Login(ctx, *tld); err != nil {
			fmt.Fprintf(os.Stderr, "start %s failed: %v\n", *tld, err)
			os.Exit(1)
		}
		fmt.Printf("✅ monitoring session started for %s\n", *tld)
	case "stop":
		if err := client.Logout(ctx, *tld); err != nil {
			fmt.Fprintf(os.Stderr, "stop %s failed: %v\n", *tld, err)
			os.Exit(1)
		}
		fmt.Printf("✅ monitoring session stopped for %s\n", *tld)
	default:
		log.Fatalf("unknown subcommand %q", sub)
	}
}
