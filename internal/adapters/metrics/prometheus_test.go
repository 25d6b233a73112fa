package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
)

func TestRecorderCountsDecisionsAndResolutions(t *testing.T) {
	r, err := NewRecorder()
	require.NoError(t, err)

	r.ObserveDecision(domain.AttemptKindLogin, domain.RiskLevelMedium, domain.AuthFlowOTPVerification, 45)
	r.ObserveDecision(domain.AttemptKindLogin, domain.RiskLevelMedium, domain.AuthFlowOTPVerification, 50)
	r.ObserveResolution(domain.AuthFlowOTPVerification, true)
	r.ObserveOTPVerification("mismatch")
	r.ObserveSessionIssued()

	require.Equal(t, 2.0, testutil.ToFloat64(r.decisions.WithLabelValues("login", "MEDIUM", "otp_verification")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.resolutions.WithLabelValues("otp_verification", "true")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.otpVerification.WithLabelValues("mismatch")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.sessionsIssued))
}

func TestRecorderHandlerServesMetrics(t *testing.T) {
	r, err := NewRecorder()
	require.NoError(t, err)
	r.ObserveHTTP(http.MethodPost, "/api/login/check", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "risk_auth_http_requests_total")
}
