package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simran251393/fraud-detection-system/internal/adapters/memory"
	"github.com/Simran251393/fraud-detection-system/internal/application"
	"github.com/Simran251393/fraud-detection-system/internal/domain"
	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

type mapLocator map[string]domain.Location

func (m mapLocator) Locate(_ context.Context, ip string) domain.Location {
	if loc, ok := m[ip]; ok {
		return loc
	}
	return domain.UnknownLocation()
}

var (
	berlin  = domain.Location{City: "Berlin", Country: "Germany", Region: "Berlin"}
	munich  = domain.Location{City: "Munich", Country: "Germany", Region: "Bavaria"}
	paris   = domain.Location{City: "Paris", Country: "France", Region: "Ile-de-France"}
	locator = mapLocator{
		"192.0.2.1": berlin,
		"192.0.2.2": munich,
		"192.0.2.3": paris,
	}
)

const knownDevice = "Mozilla/5.0 (Macintosh)"

func seedAttempt(t *testing.T, repo *memory.AttemptRepository, email, device string, loc domain.Location, success bool, at time.Time) {
	t.Helper()
	ctx := context.Background()
	attempt, _, err := repo.Create(ctx, ports.CreateAttemptParams{
		Email:         email,
		Kind:          domain.AttemptKindLogin,
		DeviceInfo:    device,
		Assessment:    domain.RiskAssessment{Level: domain.RiskLevelLow, Location: loc},
		AuthFlow:      domain.AuthFlowPasswordless,
		CreatedAt:     at,
		ResolvedFalse: !success,
		FailureReason: domain.FailureReasonPendingExpired,
	})
	require.NoError(t, err)
	if success {
		_, err = repo.Resolve(ctx, attempt.ID, true, "", at)
		require.NoError(t, err)
	}
}

func TestRiskAssessorFactors(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	const email = "user@example.com"

	tests := []struct {
		name        string
		seed        func(t *testing.T, repo *memory.AttemptRepository)
		registered  bool
		ip          string
		device      string
		wantScore   float64
		wantLevel   domain.RiskLevel
		wantFactors []string
	}{
		{
			name:        "new registration without history",
			ip:          "192.0.2.1",
			device:      knownDevice,
			wantScore:   0,
			wantLevel:   domain.RiskLevelLow,
			wantFactors: nil,
		},
		{
			name:        "registered identity on first device",
			registered:  true,
			ip:          "192.0.2.1",
			device:      knownDevice,
			wantScore:   20,
			wantLevel:   domain.RiskLevelLow,
			wantFactors: []string{"New device detected"},
		},
		{
			name: "known device same city",
			seed: func(t *testing.T, repo *memory.AttemptRepository) {
				seedAttempt(t, repo, email, knownDevice, berlin, true, now.Add(-48*time.Hour))
			},
			registered: true,
			ip:         "192.0.2.1",
			device:     knownDevice,
			wantScore:  0,
			wantLevel:  domain.RiskLevelLow,
		},
		{
			name: "city change",
			seed: func(t *testing.T, repo *memory.AttemptRepository) {
				seedAttempt(t, repo, email, knownDevice, berlin, true, now.Add(-48*time.Hour))
			},
			registered:  true,
			ip:          "192.0.2.2",
			device:      knownDevice,
			wantScore:   10,
			wantLevel:   domain.RiskLevelLow,
			wantFactors: []string{"City change detected"},
		},
		{
			name: "country change on new device",
			seed: func(t *testing.T, repo *memory.AttemptRepository) {
				seedAttempt(t, repo, email, knownDevice, berlin, true, now.Add(-48*time.Hour))
			},
			registered:  true,
			ip:          "192.0.2.3",
			device:      "curl/8.0",
			wantScore:   45,
			wantLevel:   domain.RiskLevelMedium,
			wantFactors: []string{"New device detected", "Location change detected"},
		},
		{
			name: "unknown stored location carries no signal",
			seed: func(t *testing.T, repo *memory.AttemptRepository) {
				seedAttempt(t, repo, email, knownDevice, domain.UnknownLocation(), true, now.Add(-48*time.Hour))
			},
			registered: true,
			ip:         "192.0.2.3",
			device:     knownDevice,
			wantScore:  0,
			wantLevel:  domain.RiskLevelLow,
		},
		{
			name: "moderate frequency with some failures",
			seed: func(t *testing.T, repo *memory.AttemptRepository) {
				seedAttempt(t, repo, email, knownDevice, berlin, true, now.Add(-50*time.Minute))
				seedAttempt(t, repo, email, knownDevice, berlin, true, now.Add(-40*time.Minute))
				seedAttempt(t, repo, email, knownDevice, berlin, false, now.Add(-30*time.Minute))
				seedAttempt(t, repo, email, knownDevice, berlin, false, now.Add(-20*time.Minute))
			},
			registered:  true,
			ip:          "192.0.2.1",
			device:      knownDevice,
			wantScore:   25,
			wantLevel:   domain.RiskLevelLow,
			wantFactors: []string{"Moderate frequency login attempts", "Some failed login attempts"},
		},
		{
			name: "burst of failures from a new device",
			seed: func(t *testing.T, repo *memory.AttemptRepository) {
				for i := 1; i <= 6; i++ {
					seedAttempt(t, repo, email, knownDevice, berlin, false, now.Add(-time.Duration(i)*5*time.Minute))
				}
			},
			registered:  true,
			ip:          "192.0.2.1",
			device:      knownDevice,
			wantScore:   75,
			wantLevel:   domain.RiskLevelHigh,
			wantFactors: []string{"High frequency login attempts", "Multiple failed login attempts", "New device detected"},
		},
		{
			name: "history outside the windows is ignored",
			seed: func(t *testing.T, repo *memory.AttemptRepository) {
				for i := 0; i < 6; i++ {
					seedAttempt(t, repo, email, knownDevice, berlin, false, now.Add(-25*time.Hour-time.Duration(i)*time.Minute))
				}
			},
			ip:        "192.0.2.1",
			device:    knownDevice,
			wantScore: 0,
			wantLevel: domain.RiskLevelLow,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := memory.NewAttemptRepository()
			if tc.seed != nil {
				tc.seed(t, repo)
			}
			assessor := application.NewRiskAssessor(repo, locator, domain.DefaultRiskThresholds())

			got, err := assessor.Assess(context.Background(), application.RiskInput{
				Email:      email,
				Registered: tc.registered,
				IPAddress:  tc.ip,
				DeviceInfo: tc.device,
				At:         now,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.wantScore, got.Score)
			assert.Equal(t, tc.wantLevel, got.Level)
			assert.Equal(t, tc.wantFactors, got.Factors)
			assert.Equal(t, locator.Locate(context.Background(), tc.ip), got.Location)
		})
	}
}

func TestRiskAssessorIsDeterministic(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := memory.NewAttemptRepository()
	seedAttempt(t, repo, "same@example.com", knownDevice, berlin, true, now.Add(-30*time.Minute))
	seedAttempt(t, repo, "same@example.com", knownDevice, berlin, false, now.Add(-20*time.Minute))

	assessor := application.NewRiskAssessor(repo, locator, domain.DefaultRiskThresholds())
	in := application.RiskInput{Email: "same@example.com", Registered: true, IPAddress: "192.0.2.3", DeviceInfo: "other", At: now}

	first, err := assessor.Assess(context.Background(), in)
	require.NoError(t, err)
	second, err := assessor.Assess(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRiskAssessorWithoutLocator(t *testing.T) {
	t.Parallel()

	assessor := application.NewRiskAssessor(memory.NewAttemptRepository(), nil, domain.DefaultRiskThresholds())
	got, err := assessor.Assess(context.Background(), application.RiskInput{Email: "x@example.com", IPAddress: "192.0.2.1", At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, domain.UnknownLocation(), got.Location)
}
