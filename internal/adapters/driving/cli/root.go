// Package cli provides the saai command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/saai/internal/adapters/driving/oauth"
	"github.com/custodia-labs/saai/internal/core/domain"
	"github.com/custodia-labs/saai/internal/core/ports/driving"
	"github.com/custodia-labs/saai/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// ConfigWatcher reports changes to the configuration file.
type ConfigWatcher interface {
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// Services are the wired core services and adapters the commands use.
type Services struct {
	Sessions   driving.SessionService
	Relay      driving.RelayService
	Auth       driving.AuthService
	Settings   driving.SettingsService
	Scheduler  driving.Scheduler
	Metrics    http.Handler
	Authorizer *oauth.BrowserAuthorizer

	// Watcher and Reconfigure keep a long-running daemon in step with the
	// config file. Both are optional.
	Watcher     ConfigWatcher
	Reconfigure func(settings domain.Settings)

	// Close releases stores and connections.
	Close func() error
}

// Options are the global flags passed to the wiring function.
type Options struct {
	Profile string

	// Ephemeral keeps config and sessions in memory for this run only.
	Ephemeral bool
}

// Wiring builds the services for a command run.
type Wiring func(ctx context.Context, opts Options) (*Services, error)

// Service handles, set by the wiring function or directly by tests.
var (
	sessionService  driving.SessionService
	relayService    driving.RelayService
	authService     driving.AuthService
	settingsService driving.SettingsService
	scheduler       driving.Scheduler
	metricsHandler  http.Handler
	authorizer      *oauth.BrowserAuthorizer
	configWatcher   ConfigWatcher
	reconfigure     func(settings domain.Settings)
	closeServices   func() error
)

var wiring Wiring

// Global flags.
var (
	verbose   bool
	profile   string
	ephemeral bool
)

var rootCmd = &cobra.Command{
	Use:   "saai",
	Short: "Mail assistant session relay",
	Long: `saai signs you in to the mail assistant, keeps the session alive and
relays your questions to it.

The session token is refreshed on demand: before a call whose token expires
within five minutes, and again when the service rejects it. Refresh, silent
re-authentication and session extension are tried in order; when all three
fail, run 'saai login' to sign in again.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", envOr("SAAI_PROFILE", domain.DefaultProfile),
		"session profile")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep config and sessions in memory only")
}

// SetWiring sets the function that builds services before a command runs.
func SetWiring(w Wiring) {
	wiring = w
}

// SetServices installs already-built services.
func SetServices(s *Services) {
	sessionService = s.Sessions
	relayService = s.Relay
	authService = s.Auth
	settingsService = s.Settings
	scheduler = s.Scheduler
	metricsHandler = s.Metrics
	authorizer = s.Authorizer
	configWatcher = s.Watcher
	reconfigure = s.Reconfigure
	closeServices = s.Close
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetOutput(cmd.ErrOrStderr())

	if wiring == nil || !needsServices(cmd) {
		return nil
	}
	services, err := wiring(cmd.Context(), Options{Profile: profile, Ephemeral: ephemeral})
	if err != nil {
		return fmt.Errorf("starting saai: %w", err)
	}
	SetServices(services)
	return nil
}

func teardown() error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	return err
}

// needsServices is false for commands that only print.
func needsServices(cmd *cobra.Command) bool {
	return cmd != versionCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// describe turns a service error into a message for the terminal.
func describe(err error) error {
	switch {
	case errors.Is(err, domain.ErrReauthRequired):
		return fmt.Errorf("%s, run 'saai login'", domain.ErrReauthRequired.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrAuthRequired):
		return errors.New("not signed in, run 'saai login'")
	default:
		return errors.New(domain.UserMessage(err))
	}
}
