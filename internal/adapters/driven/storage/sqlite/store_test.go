package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/saai/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "saai-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

func testSession(profile string) domain.Session {
	now := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)
	return domain.Session{
		Profile: profile,
		Credential: domain.Credential{
			AccessToken:          "header.payload.sig",
			RefreshToken:         "refresh-1",
			IssuedAt:             now,
			RefreshCount:         4,
			IsTemporaryExtension: true,
		},
		Identity: domain.Identity{
			UserID:    "user-1",
			SessionID: "saai_session_1",
		},
		SessionActive: true,
		LastHeartbeat: now.Add(-time.Minute),
		CreatedAt:     now.Add(-time.Hour),
		UpdatedAt:     now,
	}
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.Equal(t, dbFile, filepath.Base(store.Path()))
	_, err := os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_ReopenSkipsAppliedMigrations(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.SessionStore().Save(context.Background(), testSession("default")))
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	var version int
	require.NoError(t, second.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)

	got, err := second.SessionStore().Get(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.Identity.UserID)
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	sessions := store.SessionStore()
	want := testSession("default")

	require.NoError(t, sessions.Save(ctx, want))

	got, err := sessions.Get(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, want.Credential.AccessToken, got.Credential.AccessToken)
	assert.Equal(t, want.Credential.RefreshToken, got.Credential.RefreshToken)
	assert.True(t, want.Credential.IssuedAt.Equal(got.Credential.IssuedAt))
	assert.Equal(t, 4, got.Credential.RefreshCount)
	assert.True(t, got.Credential.IsTemporaryExtension)
	assert.Equal(t, want.Identity, got.Identity)
	assert.True(t, got.SessionActive)
	assert.True(t, want.LastHeartbeat.Equal(got.LastHeartbeat))
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func TestSessionStore_Save_ReplacesWholeRecord(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	sessions := store.SessionStore()
	original := testSession("default")
	require.NoError(t, sessions.Save(ctx, original))

	cleared := original
	cleared.Credential = domain.Credential{}
	cleared.Identity.UserID = ""
	cleared.SessionActive = false
	cleared.LastHeartbeat = time.Time{}
	cleared.CreatedAt = original.CreatedAt.Add(time.Hour)
	require.NoError(t, sessions.Save(ctx, cleared))

	got, err := sessions.Get(ctx, "default")
	require.NoError(t, err)
	assert.True(t, got.Credential.IsZero())
	assert.Empty(t, got.Credential.RefreshToken)
	assert.True(t, got.Credential.IssuedAt.IsZero())
	assert.Empty(t, got.Identity.UserID)
	assert.Equal(t, "saai_session_1", got.Identity.SessionID)
	assert.True(t, got.LastHeartbeat.IsZero())
	assert.True(t, original.CreatedAt.Equal(got.CreatedAt), "created_at is kept on update")
}

func TestSessionStore_Get_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.SessionStore().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_Save_RequiresProfile(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.SessionStore().Save(context.Background(), domain.Session{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSessionStore_ListAndDelete(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	sessions := store.SessionStore()
	require.NoError(t, sessions.Save(ctx, testSession("work")))
	require.NoError(t, sessions.Save(ctx, testSession("default")))

	list, err := sessions.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "default", list[0].Profile)
	assert.Equal(t, "work", list[1].Profile)

	require.NoError(t, sessions.Delete(ctx, "work"))
	_, err = sessions.Get(ctx, "work")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
