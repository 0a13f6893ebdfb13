package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	figure "github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/saai/internal/adapters/driving/relay"
	"github.com/custodia-labs/saai/internal/logger"
)

var (
	serveListen   string
	serveNoBanner bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local relay for browser extensions",
	Long: `Run the local HTTP relay that browser front-ends call instead of the
remote service. The relay holds the session, refreshes it as needed and runs
the heartbeat in the background.

Routes:
  POST   /v1/relay/{chat|task}   relay a request
  GET    /v1/session             session status, without tokens
  POST   /v1/session/refresh     run the recovery chain
  POST   /v1/session/connect     sign in through the browser
  DELETE /v1/session             sign out
  GET    /metrics                prometheus metrics
  GET    /healthz                liveness

Changes to the config file are applied without a restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "listen address (default relay.listen)")
	serveCmd.Flags().BoolVar(&serveNoBanner, "no-banner", false, "do not print the startup banner")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if relayService == nil || sessionService == nil {
		return errors.New("relay service not configured")
	}

	addr := serveListen
	if addr == "" && settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("reading settings: %w", err)
		}
		addr = settings.Relay.Listen
	}
	if addr == "" {
		return errors.New("no listen address, set relay.listen or pass --listen")
	}

	if !serveNoBanner {
		cmd.Println(figure.NewFigure("saai", "cybermedium", true).String())
	}

	// cancel runs before wg.Wait so the watcher loop can end.
	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stopScheduler := startScheduler(ctx)
	defer stopScheduler()

	if configWatcher != nil {
		changes, err := configWatcher.Watch(ctx)
		if err != nil {
			logger.Warn("config watch disabled: %v", err)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				applyConfigChanges(changes)
			}()
		}
	}

	server := relay.NewServer(relay.Deps{
		Relay:    relayService,
		Sessions: sessionService,
		Auth:     authService,
		Metrics:  metricsHandler,
	})

	return server.ListenAndServe(ctx, addr, func(a net.Addr) {
		cmd.Printf("Relay listening on http://%s (profile %s)\n", a, sessionService.Profile())
	})
}

// applyConfigChanges reloads settings on every change until changes closes.
// An invalid file keeps the previous settings.
func applyConfigChanges(changes <-chan struct{}) {
	for range changes {
		if settingsService == nil {
			continue
		}
		if err := settingsService.Reload(); err != nil {
			logger.Warn("config reload failed: %v", err)
			continue
		}
		settings, err := settingsService.Get()
		if err != nil {
			logger.Warn("config ignored, keeping previous settings: %v", err)
			continue
		}
		if reconfigure != nil {
			reconfigure(*settings)
		}
		logger.Info("config reloaded from %s", settingsService.Path())
	}
}

// startScheduler runs the background tasks until the returned func is called.
func startScheduler(ctx context.Context) func() {
	if scheduler == nil {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("scheduler stopped: %v", err)
		}
	}()

	return func() {
		if err := scheduler.Stop(); err != nil {
			logger.Warn("scheduler stop: %v", err)
		}
		cancel()
		<-done
	}
}
