package ports

import "github.com/Simran251393/fraud-detection-system/internal/domain"

// DecisionMetrics receives pipeline outcomes for monitoring.
type DecisionMetrics interface {
	ObserveDecision(kind domain.AttemptKind, level domain.RiskLevel, flow domain.AuthFlow, score float64)
	ObserveOTPVerification(outcome string)
	ObserveResolution(flow domain.AuthFlow, success bool)
	ObserveSessionIssued()
}

// NoopMetrics discards all observations.
type NoopMetrics struct{}

func (NoopMetrics) ObserveDecision(domain.AttemptKind, domain.RiskLevel, domain.AuthFlow, float64) {}
func (NoopMetrics) ObserveOTPVerification(string)                                                  {}
func (NoopMetrics) ObserveResolution(domain.AuthFlow, bool)                                        {}
func (NoopMetrics) ObserveSessionIssued()                                                          {}
