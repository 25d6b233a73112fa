package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

// SessionIssuer mints signed session tokens for successfully resolved attempts.
type SessionIssuer struct {
	signer      ports.TokenSigner
	revocations ports.SessionRevocationStore
	ttl         time.Duration
	nowFn       func() time.Time
}

func NewSessionIssuer(signer ports.TokenSigner, revocations ports.SessionRevocationStore, ttl time.Duration, nowFn func() time.Time) *SessionIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &SessionIssuer{signer: signer, revocations: revocations, ttl: ttl, nowFn: nowFn}
}

// Issue refuses to sign for an attempt that is unresolved, failed, or
// belongs to a different identity.
func (i *SessionIssuer) Issue(identity domain.Identity, attempt domain.Attempt) (AuthResponse, error) {
	if !attempt.Succeeded() {
		return AuthResponse{}, fmt.Errorf("%w: attempt %d has not succeeded", domain.ErrInvalidState, attempt.ID)
	}
	if attempt.Email != identity.Email {
		return AuthResponse{}, fmt.Errorf("%w: attempt %d belongs to another identity", domain.ErrInvalidState, attempt.ID)
	}

	now := i.nowFn()
	token, err := i.signer.Sign(ports.SessionClaims{
		UserID:    identity.UserID,
		Email:     identity.Email,
		SessionID: uuid.New(),
		AttemptID: attempt.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	})
	if err != nil {
		return AuthResponse{}, fmt.Errorf("sign session token: %w", err)
	}
	return AuthResponse{
		User:      toUserView(identity),
		Token:     token,
		ExpiresIn: int64(i.ttl.Seconds()),
	}, nil
}

func (i *SessionIssuer) Validate(ctx context.Context, token string) (ports.SessionClaims, error) {
	claims, err := i.signer.ParseAndValidate(token)
	if err != nil {
		return ports.SessionClaims{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if i.revocations != nil {
		revoked, err := i.revocations.IsRevoked(ctx, claims.SessionID)
		if err != nil {
			return ports.SessionClaims{}, fmt.Errorf("check session revocation: %w", err)
		}
		if revoked {
			return ports.SessionClaims{}, domain.ErrSessionRevoked
		}
	}
	return claims, nil
}

func (i *SessionIssuer) Revoke(ctx context.Context, claims ports.SessionClaims) error {
	if i.revocations == nil {
		return nil
	}
	return i.revocations.MarkRevoked(ctx, claims.SessionID, claims.ExpiresAt)
}
