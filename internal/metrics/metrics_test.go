package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_CountsByResult(t *testing.T) {
	before := testutil.ToFloat64(domainEvents.WithLabelValues("test_event", "error"))

	Event("test_event", nil)
	Event("test_event", errors.New("boom"))
	Event("test_event", errors.New("boom"))

	assert.Equal(t, before+2, testutil.ToFloat64(domainEvents.WithLabelValues("test_event", "error")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(domainEvents.WithLabelValues("test_event", "success")), 1.0)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	ObserveHTTP("/api/teams", http.MethodGet, http.StatusOK, 10*time.Millisecond)
	Email("welcome", "sent")
	StaleRetry("submission")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "hackhub_http_requests_total")
	assert.Contains(t, body, "hackhub_emails_total")
	assert.Contains(t, body, "hackhub_stale_retries_total")
}
