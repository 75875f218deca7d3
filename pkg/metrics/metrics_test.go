package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("clinicadm", reg)

	m.PageFetches.WithLabelValues("/patients").Inc()
	m.ProbeRetries.Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.PageFetches.WithLabelValues("/patients")))
	n, err := testutil.GatherAndCount(reg, "clinicadm_list_page_fetches_total", "clinicadm_session_probe_retries_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNopIsIndependent(t *testing.T) {
	a, b := NewNop(), NewNop()
	a.ProbeAttempts.Inc()
	assert.Equal(t, float64(0), testutil.ToFloat64(b.ProbeAttempts))
}
