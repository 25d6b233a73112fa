package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

const serviceName = "risk-auth-service"

// Service runs the authentication decision pipeline for the transport adapters.
type Service struct {
	cfg         Config
	identities  ports.IdentityRepository
	attempts    ports.AttemptRepository
	outbox      ports.OutboxRepository
	lockouts    ports.LockoutStore
	revocations ports.SessionRevocationStore
	notifier    ports.OTPSender
	metrics     ports.DecisionMetrics
	assessor    Assessor
	engine      *DecisionEngine
	stats       *StatsAggregator
	sessions    *SessionIssuer
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Identities  ports.IdentityRepository
	Attempts    ports.AttemptRepository
	Outbox      ports.OutboxRepository
	Lockouts    ports.LockoutStore
	Revocations ports.SessionRevocationStore
	StatsCache  ports.StatsCache
	Geo         ports.GeoLocator
	Notifier    ports.OTPSender
	Metrics     ports.DecisionMetrics
	Hasher      ports.OTPHasher
	Codes       ports.CodeGenerator
	TokenSigner ports.TokenSigner
	// Assessor replaces the default history-based RiskAssessor when set.
	Assessor Assessor
	Clock    func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := withConfigDefaults(deps.Config)
	nowFn := deps.Clock
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	assessor := deps.Assessor
	if assessor == nil {
		assessor = NewRiskAssessor(deps.Attempts, deps.Geo, cfg.Thresholds)
	}
	return &Service{
		cfg:         cfg,
		identities:  deps.Identities,
		attempts:    deps.Attempts,
		outbox:      deps.Outbox,
		lockouts:    deps.Lockouts,
		revocations: deps.Revocations,
		notifier:    deps.Notifier,
		metrics:     metrics,
		assessor:    assessor,
		engine: NewDecisionEngine(deps.Attempts, deps.Hasher, deps.Codes, OTPPolicy{
			Length:      cfg.OTPLength,
			TTL:         cfg.OTPTTL,
			MaxAttempts: cfg.OTPMaxAttempts,
		}, nowFn),
		stats:    NewStatsAggregator(deps.Identities, deps.Attempts, deps.StatsCache),
		sessions: NewSessionIssuer(deps.TokenSigner, deps.Revocations, cfg.TokenTTL, nowFn),
		nowFn:    nowFn,
	}
}

func withConfigDefaults(cfg Config) Config {
	if cfg.Thresholds == (domain.RiskThresholds{}) {
		cfg.Thresholds = domain.DefaultRiskThresholds()
	}
	if cfg.OTPLength <= 0 {
		cfg.OTPLength = 6
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 5 * time.Minute
	}
	if cfg.OTPMaxAttempts <= 0 {
		cfg.OTPMaxAttempts = 3
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 5 * time.Minute
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.AttemptsListLimit <= 0 {
		cfg.AttemptsListLimit = 50
	}
	if cfg.RecentAttemptsLimit <= 0 {
		cfg.RecentAttemptsLimit = 10
	}
	return cfg
}

// normalizeEmail canonicalizes and validates email format before persistence/comparison.
func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

func toRiskData(a domain.RiskAssessment) RiskData {
	factors := a.Factors
	if factors == nil {
		factors = []string{}
	}
	return RiskData{
		RiskScore: a.Score,
		RiskLevel: a.Level,
		Factors:   factors,
		Location:  a.Location,
	}
}

func toUserView(identity domain.Identity) UserView {
	return UserView{
		ID:        identity.UserID,
		Email:     identity.Email,
		Name:      identity.Name,
		Phone:     identity.Phone,
		IsBlocked: identity.IsBlocked,
		CreatedAt: identity.CreatedAt,
	}
}

func toAttemptView(a domain.Attempt) AttemptView {
	location, _ := json.Marshal(a.Location)
	factors := a.Factors
	if factors == nil {
		factors = []string{}
	}
	return AttemptView{
		ID:            a.ID,
		UserID:        a.UserID,
		Email:         a.Email,
		Kind:          string(a.Kind),
		IPAddress:     a.IPAddress,
		DeviceInfo:    a.DeviceInfo,
		Location:      string(location),
		RiskScore:     a.RiskScore,
		RiskLevel:     a.RiskLevel,
		Factors:       factors,
		AuthFlow:      a.AuthFlow,
		Success:       a.Success,
		FailureReason: a.FailureReason,
		Timestamp:     a.CreatedAt,
		ResolvedAt:    a.ResolvedAt,
	}
}

func (s *Service) enqueueEvent(ctx context.Context, eventType, partitionKey string, payload map[string]any) {
	if s.outbox == nil {
		return
	}
	now := s.nowFn()
	payload["occurred_at"] = now
	raw, err := json.Marshal(payload)
	if err == nil {
		err = s.outbox.Enqueue(ctx, ports.OutboxEvent{
			EventID:      uuid.New(),
			EventType:    eventType,
			PartitionKey: partitionKey,
			Payload:      raw,
			OccurredAt:   now,
		})
	}
	if err != nil {
		s.logger().WarnContext(ctx, "failed to enqueue outbox event",
			"operation", "enqueue_event",
			"outcome", "failure",
			"event_type", eventType,
			"error", err,
		)
	}
}

func (s *Service) logger() *slog.Logger {
	return slog.Default().With(
		"service", serviceName,
		"module", "application",
		"layer", "application",
	)
}
