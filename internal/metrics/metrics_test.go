package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordInsightRun(t *testing.T) {
	insightRunsTotal.Reset()

	RecordInsightRun("scheduled", "success")
	RecordInsightRun("scheduled", "success")
	RecordInsightRun("manual", "fallback")

	metric := &dto.Metric{}
	require.NoError(t, insightRunsTotal.WithLabelValues("scheduled", "success").Write(metric))
	assert.Equal(t, 2.0, metric.Counter.GetValue())

	metric = &dto.Metric{}
	require.NoError(t, insightRunsTotal.WithLabelValues("manual", "fallback").Write(metric))
	assert.Equal(t, 1.0, metric.Counter.GetValue())
}

func TestRecordAIRequest(t *testing.T) {
	aiRequestsTotal.Reset()
	aiRequestDuration.Reset()

	RecordAIRequest("insight", "error", 1500*time.Millisecond)

	metric := &dto.Metric{}
	require.NoError(t, aiRequestsTotal.WithLabelValues("insight", "error").Write(metric))
	assert.Equal(t, 1.0, metric.Counter.GetValue())
}

func TestSetNotifications(t *testing.T) {
	SetNotifications(12, 3)

	metric := &dto.Metric{}
	require.NoError(t, notificationsStored.Write(metric))
	assert.Equal(t, 12.0, metric.Gauge.GetValue())

	metric = &dto.Metric{}
	require.NoError(t, notificationsUnread.Write(metric))
	assert.Equal(t, 3.0, metric.Gauge.GetValue())
}
