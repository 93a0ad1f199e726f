// curiad is the governance daemon: it recovers interrupted work on
// startup and then serves the HTTP API until terminated.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"

	"github.com/curiahq/curia/internal/collab"
	"github.com/curiahq/curia/internal/config"
	"github.com/curiahq/curia/internal/governance"
	"github.com/curiahq/curia/internal/httpapi"
	"github.com/curiahq/curia/pkg/ledger"
)

// env holds the process settings; governance policy lives in curia.yml.
type env struct {
	Community     string `envconfig:"COMMUNITY" required:"true"`
	RedisURL      string `envconfig:"REDIS_URL" required:"true"`
	ConfigPath    string `envconfig:"CONFIG_PATH" default:"/etc/curia/curia.yml"`
	ListenAddr    string `envconfig:"LISTEN_ADDR" default:":8080"`
	BotGatewayURL string `envconfig:"BOT_GATEWAY_URL" required:"true"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load environment settings
	var settings env
	if err := envconfig.Process("curia", &settings); err != nil {
		return err
	}

	redisOpts, err := redis.ParseURL(settings.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	// 2. Create ledger client and verify Redis connectivity
	store, err := ledger.NewClient(redisOpts, settings.Community)
	if err != nil {
		return fmt.Errorf("failed to create ledger client: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("redis not accessible: %w", err)
	}

	// 3. Load governance policy
	cfg, err := config.Load(settings.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", settings.ConfigPath, err)
	}

	fmt.Printf("curiad starting for community '%s' (%d ladder roles)\n",
		settings.Community, len(cfg.Ladder))

	// 4. Wire the collaboration transports
	svc := governance.NewService(
		store,
		cfg,
		collab.NewRedisMessenger(store),
		collab.NewHTTPRoleGranter(settings.BotGatewayURL),
		collab.NewRedisNotifier(store),
	)

	// 5. Finish anything a previous process left behind
	if err := svc.RecoverState(ctx); err != nil {
		return fmt.Errorf("startup recovery failed: %w", err)
	}

	// 6. Serve the API with graceful shutdown
	server := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           httpapi.NewServer(svc).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	fmt.Printf("Listening on %s\n", settings.ListenAddr)

	select {
	case sig := <-sigCh:
		fmt.Printf("Received signal %v, shutting down gracefully...\n", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
