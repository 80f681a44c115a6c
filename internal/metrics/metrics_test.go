package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"freelance-tracker/internal/metrics"
)

func TestHandlerExposesDomainCounters(t *testing.T) {
	metrics.RecordStatusChange("APPROVED")
	metrics.RecordClientAction("comment", "rejected")
	metrics.RecordBlobCleanupFailure()
	metrics.RecordTokenOperation("regenerate")
	metrics.RequestStarted()
	metrics.RequestFinished("GET", "/health", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, `order_tracker_orders_status_changes_total{status="APPROVED"}`)
	assert.Contains(t, body, `order_tracker_client_actions_total{action="comment",result="rejected"}`)
	assert.Contains(t, body, "order_tracker_blobs_cleanup_failures_total")
	assert.Contains(t, body, `order_tracker_tokens_operations_total{operation="regenerate"}`)
	assert.Contains(t, body, `order_tracker_http_requests_total{method="GET",path="/health",status="200"}`)
}
