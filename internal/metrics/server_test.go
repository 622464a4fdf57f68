package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	FenceWaits.Inc()
	before := testutil.ToFloat64(scrapes.WithLabelValues("200"))

	srv := httptest.NewServer(NewServer("").Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "bufsync_fence_waits_total")
	assert.Equal(t, before+1, testutil.ToFloat64(scrapes.WithLabelValues("200")))
}
