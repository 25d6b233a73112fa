package application

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

// Assessor scores one check. RiskAssessor is the production implementation.
type Assessor interface {
	Assess(ctx context.Context, in RiskInput) (domain.RiskAssessment, error)
}

// RiskInput is everything a score may depend on. Scoring reads attempt
// history relative to At, so identical inputs over identical history
// always produce the same assessment.
type RiskInput struct {
	Email      string
	Registered bool
	IPAddress  string
	DeviceInfo string
	At         time.Time
}

const (
	frequencyWindow = time.Hour
	failureWindow   = 24 * time.Hour

	highFrequencyCount     = 5
	moderateFrequencyCount = 3
	manyFailuresCount      = 3
	someFailuresCount      = 1

	highFrequencyWeight     = 30
	moderateFrequencyWeight = 15
	manyFailuresWeight      = 25
	someFailuresWeight      = 10
	newDeviceWeight         = 20
	countryChangeWeight     = 25
	cityChangeWeight        = 10
)

type RiskAssessor struct {
	attempts   ports.AttemptRepository
	geo        ports.GeoLocator
	thresholds domain.RiskThresholds
}

func NewRiskAssessor(attempts ports.AttemptRepository, geo ports.GeoLocator, thresholds domain.RiskThresholds) *RiskAssessor {
	return &RiskAssessor{attempts: attempts, geo: geo, thresholds: thresholds}
}

func (a *RiskAssessor) Assess(ctx context.Context, in RiskInput) (domain.RiskAssessment, error) {
	var (
		score   float64
		factors []string
	)

	recent, err := a.attempts.CountSince(ctx, in.Email, in.At.Add(-frequencyWindow))
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("count recent attempts: %w", err)
	}
	switch {
	case recent > highFrequencyCount:
		score += highFrequencyWeight
		factors = append(factors, "High frequency login attempts")
	case recent > moderateFrequencyCount:
		score += moderateFrequencyWeight
		factors = append(factors, "Moderate frequency login attempts")
	}

	failed, err := a.attempts.CountFailedSince(ctx, in.Email, in.At.Add(-failureWindow))
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("count failed attempts: %w", err)
	}
	switch {
	case failed > manyFailuresCount:
		score += manyFailuresWeight
		factors = append(factors, "Multiple failed login attempts")
	case failed > someFailuresCount:
		score += someFailuresWeight
		factors = append(factors, "Some failed login attempts")
	}

	location := a.locate(ctx, in.IPAddress)

	if in.Registered {
		devices, err := a.attempts.SuccessfulDevices(ctx, in.Email)
		if err != nil {
			return domain.RiskAssessment{}, fmt.Errorf("load known devices: %w", err)
		}
		if !slices.Contains(devices, in.DeviceInfo) {
			score += newDeviceWeight
			factors = append(factors, "New device detected")
		}

		last, err := a.attempts.LastSuccessful(ctx, in.Email)
		if err != nil {
			return domain.RiskAssessment{}, fmt.Errorf("load last successful attempt: %w", err)
		}
		// An unparseable stored location carries no signal.
		if last != nil && last.Location.Country != domain.UnknownLocation().Country {
			switch {
			case last.Location.Country != location.Country:
				score += countryChangeWeight
				factors = append(factors, "Location change detected")
			case last.Location.City != location.City:
				score += cityChangeWeight
				factors = append(factors, "City change detected")
			}
		}
	}

	score = domain.ClampScore(score)
	return domain.RiskAssessment{
		Score:    score,
		Level:    a.thresholds.Classify(score),
		Factors:  factors,
		Location: location,
	}, nil
}

func (a *RiskAssessor) locate(ctx context.Context, ip string) domain.Location {
	if a.geo == nil {
		return domain.UnknownLocation()
	}
	return a.geo.Locate(ctx, ip)
}
