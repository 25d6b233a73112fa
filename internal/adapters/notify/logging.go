package notify

import (
	"context"
	"log/slog"

	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

// LoggingSender records that a code was issued without delivering it. The
// code itself is never logged.
type LoggingSender struct {
	logger *slog.Logger
}

func NewLoggingSender(logger *slog.Logger) *LoggingSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingSender{logger: logger.With("service", serviceName, "module", "notify", "layer", "adapter")}
}

func (s *LoggingSender) SendOTP(ctx context.Context, msg ports.OTPMessage) error {
	s.logger.InfoContext(ctx, "otp issued without delivery channel",
		"operation", "send_otp",
		"outcome", "logged",
		"attempt_id", msg.AttemptID,
		"code_length", len(msg.Code),
		"expires_at", msg.ExpiresAt,
	)
	return nil
}
