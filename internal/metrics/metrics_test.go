package metrics

import (
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRemote(t *testing.T) {
	before := testutil.ToFloat64(RemoteRequestsTotal.WithLabelValues("test_op", "error"))

	ObserveRemote("test_op", time.Now(), errors.New("boom"))

	after := testutil.ToFloat64(RemoteRequestsTotal.WithLabelValues("test_op", "error"))
	assert.Equal(t, before+1, after)
}

func TestServer_ServesMetricsAndHealth(t *testing.T) {
	srv := NewServer("127.0.0.1:0", zerolog.Nop())
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "fretlog_timer_running")
}
