package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/saai/internal/core/domain"
)

// setupTestStore connects to SAAI_TEST_REDIS_ADDR with a unique key prefix.
func setupTestStore(t *testing.T) *SessionStore {
	t.Helper()

	addr := os.Getenv("SAAI_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SAAI_TEST_REDIS_ADDR not set")
	}

	client, err := Connect(context.Background(), addr)
	require.NoError(t, err)

	prefix := "saai-test-" + uuid.NewString()
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := client.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		_ = client.Close()
	})

	return NewSessionStore(client, prefix)
}

func TestNewSessionStore_DefaultPrefix(t *testing.T) {
	store := NewSessionStore(nil, "")

	assert.Equal(t, "saai:session:work", store.sessionKey("work"))
	assert.Equal(t, "saai:profiles", store.profilesKey())
}

func TestDecodeSession_Invalid(t *testing.T) {
	_, err := decodeSession([]byte("{not json"))
	assert.Error(t, err)
}

func TestSessionStore_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	want := domain.Session{
		Profile: "default",
		Credential: domain.Credential{
			AccessToken:  "a.b.c",
			RefreshToken: "refresh",
			IssuedAt:     issued,
			RefreshCount: 2,
		},
		Identity:  domain.Identity{UserID: "user-1", SessionID: "saai_session_1"},
		CreatedAt: issued,
		UpdatedAt: issued,
	}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Get(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, want.Credential.AccessToken, got.Credential.AccessToken)
	assert.True(t, issued.Equal(got.Credential.IssuedAt))
	assert.Equal(t, want.Identity, got.Identity)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.Delete(ctx, "default"))
	_, err = store.Get(ctx, "default")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSessionStore_Save_RequiresProfile(t *testing.T) {
	store := NewSessionStore(nil, "")
	assert.ErrorIs(t, store.Save(context.Background(), domain.Session{}), domain.ErrInvalidInput)
}
