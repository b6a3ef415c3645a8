package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveIngestIncrementsCounters(t *testing.T) {
	m := New()
	m.ObserveIngest(10*time.Millisecond, 5, nil)
	require.Equal(t, float64(5), testutil.ToFloat64(m.ingestChunks))
}

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveIngest(time.Second, 1, nil)
		m.ObserveSearch(time.Second, 1, nil)
		m.ObserveGraphQuery(time.Second, nil)
		m.ObserveWatcherTick(1, 1, nil)
		m.RecordMerkleRecompute()
	})
}

func TestRegistryIsNilOnNilMetrics(t *testing.T) {
	var m *Metrics
	require.Nil(t, m.Registry())
}
