package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordInvocationIncrementsCounters(t *testing.T) {
	m := New()
	m.RecordInvocation("read", 10*time.Millisecond, false)
	m.RecordInvocation("read", 20*time.Millisecond, true)

	invocations, errs := m.Snapshot("read")
	require.Equal(t, float64(2), invocations)
	require.Equal(t, float64(1), errs)
}

func TestSnapshotUnknownToolIsZero(t *testing.T) {
	m := New()
	invocations, errs := m.Snapshot("never_called")
	require.Equal(t, float64(0), invocations)
	require.Equal(t, float64(0), errs)
}

func TestInFlightGaugeTracksConcurrency(t *testing.T) {
	m := New()
	m.IncInFlight()
	m.IncInFlight()
	m.DecInFlight()

	metricFamilies, err := m.registry.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range metricFamilies {
		if mf.GetName() == "hanzo_mcp_tool_in_flight" {
			found = true
			require.Equal(t, float64(1), mf.Metric[0].GetGauge().GetValue())
		}
	}
	require.True(t, found)
}
