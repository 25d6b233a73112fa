package application

import (
	"context"

	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

func (s *Service) ValidateToken(ctx context.Context, token string) (ports.SessionClaims, error) {
	return s.sessions.Validate(ctx, token)
}

func (s *Service) CurrentUser(ctx context.Context, claims ports.SessionClaims) (UserView, error) {
	identity, err := s.identities.GetByID(ctx, claims.UserID)
	if err != nil {
		return UserView{}, err
	}
	return toUserView(identity), nil
}

func (s *Service) Logout(ctx context.Context, claims ports.SessionClaims) error {
	if err := s.sessions.Revoke(ctx, claims); err != nil {
		return err
	}
	s.logger().InfoContext(ctx, "session revoked",
		"operation", "logout",
		"outcome", "success",
		"session_id", claims.SessionID,
	)
	return nil
}
