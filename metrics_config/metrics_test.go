package metrics_config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisableMetricsReturnsNilConstructors(t *testing.T) {
	DisableMetrics()
	defer EnableMetrics()

	require.False(t, MetricsEnabled())
	require.Nil(t, NewCounter("disabled_counter_test", "help"))
	require.Nil(t, NewGauge("disabled_gauge_test", "help"))
	require.Nil(t, NewHistogram("disabled_histogram_test", "help"))
	require.Nil(t, NewCounterVec("disabled_counter_vec_test", "help", "label"))
	require.Nil(t, NewGaugeVec("disabled_gauge_vec_test", "help", "label"))
}

func TestEnabledConstructorsRegisterLiveMetrics(t *testing.T) {
	EnableMetrics()
	require.True(t, MetricsEnabled())

	c := NewCounter("enabled_counter_test", "help")
	require.NotNil(t, c)
	c.Inc()

	h := NewHistogram("enabled_histogram_test", "help")
	require.NotNil(t, h)
	h.Observe(1.5)
}
