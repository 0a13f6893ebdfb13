// Command saai signs in to the mail assistant and relays requests to it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/saai/internal/adapters/driven/backend"
	"github.com/custodia-labs/saai/internal/adapters/driven/config/file"
	"github.com/custodia-labs/saai/internal/adapters/driven/metrics"
	oauthurls "github.com/custodia-labs/saai/internal/adapters/driven/oauth"
	"github.com/custodia-labs/saai/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/saai/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/saai/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/saai/internal/adapters/driving/cli"
	"github.com/custodia-labs/saai/internal/adapters/driving/oauth"
	"github.com/custodia-labs/saai/internal/core/domain"
	"github.com/custodia-labs/saai/internal/core/ports/driven"
	"github.com/custodia-labs/saai/internal/core/services"
	"github.com/custodia-labs/saai/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetWiring(wire)
	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// stores are the persistence adapters selected by the store settings.
type stores struct {
	sessions  driven.SessionStore
	scheduler driven.SchedulerStore
	close     func() error
}

func openStores(ctx context.Context, settings domain.StoreSettings) (*stores, error) {
	switch settings.Backend {
	case domain.StoreRedis:
		client, err := redis.Connect(ctx, settings.RedisAddr)
		if err != nil {
			return nil, err
		}
		return &stores{
			sessions:  redis.NewSessionStore(client, ""),
			scheduler: memory.NewSchedulerStore(),
			close:     client.Close,
		}, nil
	case domain.StoreMemory:
		return &stores{
			sessions:  memory.NewSessionStore(),
			scheduler: memory.NewSchedulerStore(),
			close:     func() error { return nil },
		}, nil
	default:
		db, err := sqlite.NewStore("")
		if err != nil {
			return nil, err
		}
		logger.Debug("store: %s", db.Path())
		return &stores{
			sessions:  db.SessionStore(),
			scheduler: db.SchedulerStore(),
			close:     db.Close,
		}, nil
	}
}

// wire builds the services for one command run.
func wire(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	var (
		configStore driven.ConfigStore
		watcher     cli.ConfigWatcher
	)
	if opts.Ephemeral {
		configStore = memory.NewConfigStore()
	} else {
		fileStore, err := file.NewConfigStore("")
		if err != nil {
			return nil, fmt.Errorf("opening config: %w", err)
		}
		configStore, watcher = fileStore, fileStore
	}

	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", settingsService.Path(), err)
	}
	if opts.Ephemeral {
		settings.Store.Backend = domain.StoreMemory
	}

	st, err := openStores(ctx, settings.Store)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", settings.Store.Backend, err)
	}

	recorder := metrics.NewRecorder()
	client := backend.NewClient(settings.Backend)

	sessions := services.NewSessionManager(opts.Profile, st.sessions, client)
	sessions.SetMetrics(recorder)

	relayService := services.NewRelayService(sessions, client, settings.Relay)
	relayService.SetMetrics(recorder)

	urls := oauthurls.NewURLBuilder(settings.OAuth)
	authorizer := oauth.NewBrowserAuthorizer(settings.OAuth)

	logger.Debug("profile %s, backend %s", opts.Profile, settings.Backend.BaseURL)

	return &cli.Services{
		Sessions:   sessions,
		Relay:      relayService,
		Auth:       services.NewAuthService(sessions, client, authorizer, urls),
		Settings:   settingsService,
		Scheduler:  services.NewScheduler(settings.Scheduler, st.scheduler, sessions, client),
		Metrics:    recorder.Handler(),
		Authorizer: authorizer,
		Watcher:    watcher,
		Reconfigure: func(s domain.Settings) {
			client.Configure(s.Backend)
			relayService.Configure(s.Relay)
			urls.Configure(s.OAuth)
		},
		Close: func() error {
			if err := st.close(); err != nil {
				return fmt.Errorf("closing store: %w", err)
			}
			return nil
		},
	}, nil
}
