package postgres

import (
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

func toDomainIdentity(row identityModel) domain.Identity {
	return domain.Identity{
		UserID:    row.UserID,
		Email:     row.Email,
		Name:      row.Name,
		Phone:     derefString(row.Phone),
		IsBlocked: row.IsBlocked,
		BlockedAt: row.BlockedAt,
		CreatedAt: row.CreatedAt,
	}
}

func toDomainAttempt(row attemptModel) domain.Attempt {
	return domain.Attempt{
		ID:            row.ID,
		UserID:        row.UserID,
		Email:         row.Email,
		Kind:          domain.AttemptKind(row.Kind),
		IPAddress:     derefString(row.IPAddress),
		DeviceInfo:    row.DeviceInfo,
		Location:      parseLocation(row.Location),
		RiskScore:     row.RiskScore,
		RiskLevel:     domain.RiskLevel(row.RiskLevel),
		Factors:       parseFactors(row.RiskFactors),
		AuthFlow:      domain.AuthFlow(row.AuthFlow),
		Success:       row.Success,
		FailureReason: derefString(row.FailureReason),
		OTPCodeHash:   derefString(row.OTPCodeHash),
		OTPFailures:   row.OTPFailures,
		ExpiresAt:     row.ExpiresAt,
		CreatedAt:     row.CreatedAt,
		ResolvedAt:    row.ResolvedAt,
	}
}

func toOutboxRecord(row outboxModel) ports.OutboxRecord {
	return ports.OutboxRecord{
		OutboxID:       row.OutboxID,
		EventType:      row.EventType,
		PartitionKey:   row.PartitionKey,
		Payload:        []byte(row.Payload),
		RetryCount:     row.RetryCount,
		LastError:      row.LastError,
		CreatedAt:      row.CreatedAt,
		PublishedAt:    row.PublishedAt,
		LastErrorAt:    row.LastErrorAt,
		FirstSeenAt:    row.FirstSeenAt,
		ClaimToken:     row.ClaimToken,
		ClaimUntil:     row.ClaimUntil,
		DeadLetteredAt: row.DeadLetteredAt,
	}
}

// parseLocation tolerates rows written by older clients; anything that is
// not a JSON object with a country becomes Unknown.
func parseLocation(raw string) domain.Location {
	var loc domain.Location
	if err := json.Unmarshal([]byte(raw), &loc); err != nil || loc.Country == "" {
		return domain.UnknownLocation()
	}
	if loc.City == "" {
		loc.City = "Unknown"
	}
	return loc
}

func encodeLocation(loc domain.Location) string {
	raw, err := json.Marshal(loc)
	if err != nil {
		return ""
	}
	return string(raw)
}

func parseFactors(raw string) []string {
	var factors []string
	if err := json.Unmarshal([]byte(raw), &factors); err != nil {
		return nil
	}
	return factors
}

func encodeFactors(factors []string) string {
	if factors == nil {
		factors = []string{}
	}
	raw, _ := json.Marshal(factors)
	return string(raw)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
