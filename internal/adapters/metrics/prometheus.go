package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
)

const namespace = "risk_auth"

// Recorder exports decision pipeline and HTTP metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	decisions       *prometheus.CounterVec
	riskScore       *prometheus.HistogramVec
	otpVerification *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
	sessionsIssued  prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func NewRecorder() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Risk decisions by attempt kind, risk level and chosen flow.",
		}, []string{"kind", "risk_level", "auth_flow"}),
		riskScore: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "risk_score",
			Help:      "Distribution of computed risk scores.",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}, []string{"kind"}),
		otpVerification: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_verifications_total",
			Help:      "OTP verification outcomes.",
		}, []string{"outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempt_resolutions_total",
			Help:      "Attempt resolutions by flow and result.",
		}, []string{"auth_flow", "success"}),
		sessionsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_issued_total",
			Help:      "Session tokens issued.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	for _, c := range []prometheus.Collector{
		r.decisions,
		r.riskScore,
		r.otpVerification,
		r.resolutions,
		r.sessionsIssued,
		r.httpRequests,
		r.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := register(r.registry, c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func register(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests and ad-hoc scrapes.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *Recorder) ObserveDecision(kind domain.AttemptKind, level domain.RiskLevel, flow domain.AuthFlow, score float64) {
	r.decisions.WithLabelValues(string(kind), string(level), string(flow)).Inc()
	r.riskScore.WithLabelValues(string(kind)).Observe(score)
}

func (r *Recorder) ObserveOTPVerification(outcome string) {
	r.otpVerification.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveResolution(flow domain.AuthFlow, success bool) {
	r.resolutions.WithLabelValues(string(flow), strconv.FormatBool(success)).Inc()
}

func (r *Recorder) ObserveSessionIssued() {
	r.sessionsIssued.Inc()
}

func (r *Recorder) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
