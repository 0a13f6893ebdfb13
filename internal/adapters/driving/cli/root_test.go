package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/saai/internal/core/domain"
)

func withWiring(t *testing.T, w Wiring) {
	t.Helper()
	prev := wiring
	SetWiring(w)
	t.Cleanup(func() {
		wiring = prev
		profile = domain.DefaultProfile
		ephemeral = false
		closeServices = nil
	})
}

func TestRootCmd_WiringReceivesProfile(t *testing.T) {
	sessions, _, _, cleanup := setupTestServices()
	defer cleanup()

	var got Options
	closed := false
	withWiring(t, func(_ context.Context, opts Options) (*Services, error) {
		got = opts
		return &Services{
			Sessions: sessions,
			Close: func() error {
				closed = true
				return nil
			},
		}, nil
	})

	_, err := execute("--profile", "work", "status")

	require.NoError(t, err)
	assert.Equal(t, "work", got.Profile)
	assert.False(t, got.Ephemeral)
	assert.True(t, closed)
}

func TestRootCmd_Ephemeral(t *testing.T) {
	sessions, _, _, cleanup := setupTestServices()
	defer cleanup()

	var got Options
	withWiring(t, func(_ context.Context, opts Options) (*Services, error) {
		got = opts
		return &Services{Sessions: sessions}, nil
	})

	_, err := execute("--ephemeral", "status")

	require.NoError(t, err)
	assert.True(t, got.Ephemeral)
}

func TestRootCmd_WiringError(t *testing.T) {
	_, _, _, cleanup := setupTestServices()
	defer cleanup()
	withWiring(t, func(context.Context, Options) (*Services, error) {
		return nil, errors.New("database is locked")
	})

	_, err := execute("status")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting saai")
	assert.Contains(t, err.Error(), "database is locked")
}

func TestSetServices(t *testing.T) {
	sessions, relay, settings, cleanup := setupTestServices()
	defer cleanup()
	sessionService, relayService, settingsService = nil, nil, nil

	SetServices(&Services{Sessions: sessions, Relay: relay, Settings: settings})

	assert.Equal(t, sessions, sessionService)
	assert.Equal(t, relay, relayService)
	assert.Equal(t, settings, settingsService)
	assert.Nil(t, scheduler)
}

func TestTeardown(t *testing.T) {
	calls := 0
	closeServices = func() error {
		calls++
		return errors.New("close failed")
	}

	assert.EqualError(t, teardown(), "close failed")
	assert.NoError(t, teardown())
	assert.Equal(t, 1, calls)
}

func TestEnvOr(t *testing.T) {
	t.Setenv("SAAI_TEST_VALUE", "set")

	assert.Equal(t, "set", envOr("SAAI_TEST_VALUE", "fallback"))
	assert.Equal(t, "fallback", envOr("SAAI_TEST_UNSET", "fallback"))
}

func TestRootCmd_GlobalFlags(t *testing.T) {
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("profile"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("ephemeral"))
}
