package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_HandlerServesMetricsAndHealth(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordRequest("put_link", OutcomeOK, 3*time.Millisecond)

	srv := NewServer("", "", registry)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `latticectl_ctl_requests_total{operation="put_link",outcome="ok"} 1`)

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ExtraRoutes(t *testing.T) {
	srv := NewServer(":0", "/m", NewMetricsRegistry())
	srv.Handle("/events", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("stream"))
	}))

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/events")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "stream", string(body))

	resp, err = http.Get(ts.URL + "/")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `href="/m"`)
}

func TestServer_StartStop(t *testing.T) {
	srv := NewServer("127.0.0.1:0", "/metrics", NewMetricsRegistry())

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	require.Eventually(t, func() bool {
		return !strings.HasSuffix(srv.Address(), ":0/metrics")
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get(srv.Address())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	err = srv.Start()
	assert.Error(t, err, "second start should fail while running")

	require.NoError(t, srv.Stop())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestServer_StartWithoutRegistry(t *testing.T) {
	srv := NewServer("127.0.0.1:0", "", nil)
	assert.Error(t, srv.Start())
}
