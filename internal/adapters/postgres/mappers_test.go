package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
)

func TestParseLocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want domain.Location
	}{
		{name: "full object", raw: `{"city":"Lyon","country":"France","region":"Auvergne"}`, want: domain.Location{City: "Lyon", Country: "France", Region: "Auvergne"}},
		{name: "missing city", raw: `{"country":"France"}`, want: domain.Location{City: "Unknown", Country: "France"}},
		{name: "legacy plain string", raw: "Lyon, France", want: domain.UnknownLocation()},
		{name: "empty", raw: "", want: domain.UnknownLocation()},
		{name: "object without country", raw: `{"city":"Lyon"}`, want: domain.UnknownLocation()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseLocation(tc.raw))
		})
	}
}

func TestEncodeFactors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[]", encodeFactors(nil))
	assert.Equal(t, []string{"New device detected"}, parseFactors(encodeFactors([]string{"New device detected"})))
	assert.Nil(t, parseFactors("not json"))
}

func TestToDomainAttempt(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	ip := "203.0.113.9"
	hash := "$2a$04$hash"
	success := false
	reason := domain.FailureReasonOTPExhausted
	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	got := toDomainAttempt(attemptModel{
		ID:            7,
		UserID:        &userID,
		Email:         "row@example.com",
		Kind:          string(domain.AttemptKindLogin),
		IPAddress:     &ip,
		DeviceInfo:    "ua",
		Location:      encodeLocation(domain.Location{City: "Oslo", Country: "Norway"}),
		RiskScore:     45,
		RiskLevel:     string(domain.RiskLevelMedium),
		RiskFactors:   `["Location change detected"]`,
		AuthFlow:      string(domain.AuthFlowOTPVerification),
		Success:       &success,
		FailureReason: &reason,
		OTPCodeHash:   &hash,
		OTPFailures:   3,
		CreatedAt:     created,
	})

	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, &userID, got.UserID)
	assert.Equal(t, ip, got.IPAddress)
	assert.Equal(t, domain.Location{City: "Oslo", Country: "Norway"}, got.Location)
	assert.Equal(t, []string{"Location change detected"}, got.Factors)
	assert.Equal(t, domain.AttemptStateResolved, got.State())
	assert.Equal(t, domain.FailureReasonOTPExhausted, got.FailureReason)
	assert.Equal(t, 3, got.OTPFailures)
}

func TestNullableString(t *testing.T) {
	t.Parallel()

	assert.Nil(t, nullableString("   "))
	v := nullableString(" +1 555 ")
	if assert.NotNil(t, v) {
		assert.Equal(t, "+1 555", *v)
	}
}
