package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("not = [valid"), 0600))

	_, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
}

func TestConfigStore_SetPersistsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("backend.base_url", "https://hooks.example.com"))
	require.NoError(t, store.Set("relay.auth_reject_statuses", []int64{401, 403}))
	require.NoError(t, store.Set("scheduler.heartbeat.enabled", true))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[backend]")
	assert.Contains(t, string(data), "[scheduler.heartbeat]")

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assertValue(t, reopened, "backend.base_url", "https://hooks.example.com")
	assertValue(t, reopened, "scheduler.heartbeat.enabled", true)

	statuses, ok := reopened.Get("relay.auth_reject_statuses")
	require.True(t, ok)
	assert.Equal(t, []any{int64(401), int64(403)}, statuses)
}

func TestConfigStore_DecodedTypes(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("oauth.callback_port", 18080))
	require.NoError(t, store.Set("oauth.scopes", []string{"email", "profile"}))
	require.NoError(t, store.Set("relay.listen", "127.0.0.1:9000"))

	reopened, err := NewConfigStore(filepath.Dir(store.Path()))
	require.NoError(t, err)

	assertValue(t, reopened, "oauth.callback_port", int64(18080))
	assertValue(t, reopened, "oauth.scopes", []any{"email", "profile"})
	assertValue(t, reopened, "relay.listen", "127.0.0.1:9000")

	_, ok := reopened.Get("missing")
	assert.False(t, ok)
}

// assertValue checks the decoded value stored under key.
func assertValue(t *testing.T, store *ConfigStore, key string, want any) {
	t.Helper()
	got, ok := store.Get(key)
	require.True(t, ok, "key %s not set", key)
	assert.Equal(t, want, got)
}

func TestConfigStore_SetConflictRollsBack(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("backend", "flat"))
	err = store.Set("backend.base_url", "https://hooks.example.com")

	assert.Error(t, err)
	_, ok := store.Get("backend.base_url")
	assert.False(t, ok)
	assert.Equal(t, []string{"backend"}, store.Keys())
}

func TestConfigStore_Unset(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("relay.listen", "127.0.0.1:9000"))
	require.NoError(t, store.Set("backend.timeout", "30s"))
	require.NoError(t, store.Unset("relay.listen"))
	require.NoError(t, store.Unset("never.set"))

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"backend.timeout"}, reopened.Keys())
}

func TestConfigStore_Load_PicksUpExternalEdits(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("relay.listen", "127.0.0.1:9000"))

	content := "[relay]\nlisten = \"0.0.0.0:7000\"\n"
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0600))
	require.NoError(t, store.Load())

	assertValue(t, store, "relay.listen", "0.0.0.0:7000")
}

func TestConfigStore_Load_MissingFileClears(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("relay.listen", "127.0.0.1:9000"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, store.Load())

	assert.Empty(t, store.Keys())
}

func TestConfigStore_IsConfigEvent(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	other := filepath.Join(filepath.Dir(store.Path()), "other.toml")

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write", fsnotify.Event{Name: store.Path(), Op: fsnotify.Write}, true},
		{"create", fsnotify.Event{Name: store.Path(), Op: fsnotify.Create}, true},
		{"rename", fsnotify.Event{Name: store.Path(), Op: fsnotify.Rename}, true},
		{"remove", fsnotify.Event{Name: store.Path(), Op: fsnotify.Remove}, true},
		{"chmod only", fsnotify.Event{Name: store.Path(), Op: fsnotify.Chmod}, false},
		{"other file", fsnotify.Event{Name: other, Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, store.isConfigEvent(tt.event))
		})
	}
}

func TestConfigStore_Watch_ReloadsOnWrite(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := store.Watch(ctx)
	require.NoError(t, err)

	writer, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, writer.Set("relay.listen", "127.0.0.1:9100"))

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no reload signal")
	}
	assertValue(t, store, "relay.listen", "127.0.0.1:9100")

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-changes:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
