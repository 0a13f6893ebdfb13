package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/saai/internal/core/domain"
)

func TestRecorder_GrantAttempted(t *testing.T) {
	r := NewRecorder()

	r.GrantAttempted(domain.GrantRefresh, false)
	r.GrantAttempted(domain.GrantRefresh, false)
	r.GrantAttempted(domain.GrantSilentReauth, true)

	assert.InDelta(t, 2, testutil.ToFloat64(r.grants.WithLabelValues("refresh_token", "false")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.grants.WithLabelValues("silent_refresh", "true")), 0)
}

func TestRecorder_RelayAttempted(t *testing.T) {
	r := NewRecorder()

	r.RelayAttempted(domain.EndpointChat, "ok")
	r.RelayAttempted(domain.EndpointChat, "auth_retry")
	r.RelayAttempted(domain.EndpointChat, "ok")

	assert.InDelta(t, 2, testutil.ToFloat64(r.relays.WithLabelValues("chat", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.relays.WithLabelValues("chat", "auth_retry")), 0)
}

func TestRecorder_StateChanged(t *testing.T) {
	r := NewRecorder()

	r.StateChanged("default", domain.StateRefreshing)
	r.StateChanged("default", domain.StateAwaitingInteractiveAuth)

	assert.InDelta(t, 2, testutil.ToFloat64(r.state.WithLabelValues("default")), 0)
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.GrantAttempted(domain.GrantSessionExtension, true)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `saai_grant_attempts_total{result="true",strategy="session_extension"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRecorders_AreIndependent(t *testing.T) {
	a := NewRecorder()
	b := NewRecorder()

	a.RelayAttempted(domain.EndpointTask, "ok")

	assert.InDelta(t, 0, testutil.ToFloat64(b.relays.WithLabelValues("task", "ok")), 0)
}
