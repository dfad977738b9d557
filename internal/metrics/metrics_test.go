package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterCollectors(reg)
	RegisterCollectors(reg)

	AuthAttempts.WithLabelValues("ok").Inc()
	require.Equal(t, 1.0, testutil.ToFloat64(AuthAttempts.WithLabelValues("ok")))

	TaskOperations.WithLabelValues("create", "ok").Inc()
	HTTPRequestDuration.WithLabelValues("GET /tasks", "200").Observe(0.01)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["aa_tracker_auth_attempts_total"])
	require.True(t, names["aa_tracker_task_operations_total"])
	require.True(t, names["aa_tracker_http_request_duration_seconds"])
}
