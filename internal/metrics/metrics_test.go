package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRemote(t *testing.T) {
	before := testutil.ToFloat64(remoteRequestsTotal.WithLabelValues("move", "error"))

	RecordRemote("move", 10*time.Millisecond, errors.New("boom"))
	RecordRemote("move", 10*time.Millisecond, nil)

	assert.Equal(t, before+1, testutil.ToFloat64(remoteRequestsTotal.WithLabelValues("move", "error")))
}

func TestRecordMoveRejection(t *testing.T) {
	before := testutil.ToFloat64(moveRejectionsTotal.WithLabelValues("cycle"))
	RecordMoveRejection("cycle")
	assert.Equal(t, before+1, testutil.ToFloat64(moveRejectionsTotal.WithLabelValues("cycle")))
}

func TestHandlerExposesCounters(t *testing.T) {
	RecordStaleResponse()

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hivedeck_drive_stale_responses_total")
}
