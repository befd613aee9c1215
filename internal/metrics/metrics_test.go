package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.DocumentTransition("completed")
		m.IngestFinished("completed", time.Second)
		m.EmbedRetry()
		m.ChunksAdded(3)
		m.QueryFinished(time.Second, "empty_corpus")
		m.HTTPRequest("GET", "/health", 200)
		m.TaskProcessed("ingest_document", "ack")
		m.QueueSampled(1, 2, 3)
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()

	m.DocumentTransition("processing")
	m.DocumentTransition("completed")
	m.DocumentTransition("completed")
	m.ChunksAdded(4)
	m.EmbedRetry()
	m.QueryFinished(10*time.Millisecond, "")
	m.QueryFinished(10*time.Millisecond, "empty_corpus")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocumentTransitions.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentTransitions.WithLabelValues("processing")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ChunksIndexed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmbedRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryErrors.WithLabelValues("empty_corpus")))
}

func TestQueueSampledOverwrites(t *testing.T) {
	m := New()

	m.QueueSampled(5, 1, 0)
	m.QueueSampled(2, 0, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueueTasks.WithLabelValues("pending")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.QueueTasks.WithLabelValues("processing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueueTasks.WithLabelValues("failed")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.HTTPRequest("POST", "/api/v1/query", 200)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `sercha_corpus_http_requests_total{method="POST",route="/api/v1/query",status="200"} 1`))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}

func TestSeparateRegistries(t *testing.T) {
	// Two instances must not collide on registration
	assert.NotPanics(t, func() {
		_ = New()
		_ = New()
	})
}
