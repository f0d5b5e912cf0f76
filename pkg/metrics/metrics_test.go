package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iggraph/pkg/logger"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.UpstreamAttempt("followed_accounts", "rate_limited")
	m.UpstreamAttempt("followed_accounts", "rate_limited")
	m.UpstreamAttempt("followed_accounts", "ok")
	m.Backoff("followed_accounts", 12*time.Second)
	m.Backoff("followed_accounts", 14*time.Second)
	m.Expansion("ok")
	m.Promotions(3)
	m.RankingRound("eigenvector", true)
	m.RankingRound("in-degree", false)
	m.GraphSize(10, 14)
	m.TrackedAccounts(4, 2)
	m.PacerSleep("batch", 300*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.upstreamAttempts.WithLabelValues("followed_accounts", "rate_limited")))
	assert.Equal(t, 26.0, testutil.ToFloat64(m.backoffSeconds.WithLabelValues("followed_accounts")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.expansions.WithLabelValues("ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.promotions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rankingRounds.WithLabelValues("in-degree", "false")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.graphNodes))
	assert.Equal(t, 14.0, testutil.ToFloat64(m.graphEdges))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.trackedAccounts.WithLabelValues("scraped")))
	assert.Equal(t, 300.0, testutil.ToFloat64(m.pacerSleep.WithLabelValues("batch")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Promotions(2)

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "iggraph_crawl_promotions_total 2")

	health, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestMetrics_Serve(t *testing.T) {
	m := New()
	ctx, cancel := context.WithCancel(context.Background())

	done, err := m.Serve(ctx, "127.0.0.1:0", logger.NewNopLogger())
	require.NoError(t, err)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}

func TestMetrics_ServeBadAddress(t *testing.T) {
	_, err := New().Serve(context.Background(), "not-an-address", logger.NewNopLogger())
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.Promotions(1)
	r.GraphSize(1, 1)
}
