package domain

import "fmt"

type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "LOW"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelHigh   RiskLevel = "HIGH"
)

// RiskLevels lists levels in ascending order.
var RiskLevels = []RiskLevel{RiskLevelLow, RiskLevelMedium, RiskLevelHigh}

// Location is the geo context derived from the source IP.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
	Region  string `json:"region,omitempty"`
}

// UnknownLocation is used whenever geo data is unavailable or unparseable.
func UnknownLocation() Location {
	return Location{City: "Unknown", Country: "Unknown", Region: "Unknown"}
}

// RiskAssessment is the ephemeral output of scoring one check.
type RiskAssessment struct {
	Score    float64
	Level    RiskLevel
	Factors  []string
	Location Location
}

// RiskThresholds splits a score into levels: score < Low is LOW,
// score < Medium is MEDIUM, anything else is HIGH.
type RiskThresholds struct {
	Low    float64
	Medium float64
}

func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{Low: 30, Medium: 60}
}

func (t RiskThresholds) Validate() error {
	if t.Low <= 0 || t.Low > t.Medium || t.Medium > 100 {
		return fmt.Errorf("%w: thresholds must satisfy 0 < low <= medium <= 100", ErrInvalidInput)
	}
	return nil
}

func (t RiskThresholds) Classify(score float64) RiskLevel {
	switch {
	case score < t.Low:
		return RiskLevelLow
	case score < t.Medium:
		return RiskLevelMedium
	default:
		return RiskLevelHigh
	}
}

// ClampScore bounds a raw score to [0,100].
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
