package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/api/public/tickets", http.MethodPost, 201, time.Millisecond)
		m.RecordError("/api/public/tickets", "VALIDATION_FAILED")
		m.RecordSubmission("Elogio", true)
		m.RecordContest("accepted")
		m.RecordNotificationFailure("ticket.created")
		m.RecordEmailDelivered()
	})
}

func TestMetricsHandlerExposesDomainCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordSubmission("Denúncia", false)
	m.RecordContest("CONTEST_ALREADY_USED")
	m.RecordRequest("/api/public/tickets/:protocol", http.MethodGet, 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `tickets_submitted_total{anonymous="false",type="Denúncia"} 1`)
	assert.Contains(t, text, `contests_total{outcome="CONTEST_ALREADY_USED"} 1`)
	assert.Contains(t, text, `route="/api/public/tickets/:protocol"`)
}
