package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sitewave/sitewave/internal/service/payment"
	"github.com/sitewave/sitewave/internal/service/user"
)

// Sender delivers a single message. The production implementation talks to
// the outbound mail provider; failures are logged and never propagated into
// the flows that triggered them.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// UserDirectory resolves recipients.
type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (*user.User, error)
}

type Service struct {
	sender Sender
	users  UserDirectory
	logger *zerolog.Logger
}

func New(sender Sender, users UserDirectory, logger *zerolog.Logger) *Service {
	log := logger.With().Str("channel", "email_service").Logger()
	return &Service{
		sender: sender,
		users:  users,
		logger: &log,
	}
}

// HandlePaymentApproved is subscribed to the payment.approved bus topic.
func (s *Service) HandlePaymentApproved(p *payment.Payment) {
	s.notify(p,
		"Your payment was approved",
		fmt.Sprintf("Your payment of %s has been approved and your subscription is now active.", p.Amount.StringFixed(2)),
	)
}

// HandlePaymentRejected is subscribed to the payment.rejected bus topic.
func (s *Service) HandlePaymentRejected(p *payment.Payment) {
	reason := "No reason provided"
	if p.RejectedReason.Valid {
		reason = p.RejectedReason.String
	}

	s.notify(p,
		"Your payment was rejected",
		fmt.Sprintf("Your payment of %s was rejected: %s", p.Amount.StringFixed(2), reason),
	)
}

// SendVerificationCode emails a signup verification code.
func (s *Service) SendVerificationCode(ctx context.Context, to, code string) error {
	return s.sender.Send(ctx, to,
		"Email Verification",
		fmt.Sprintf("Your verification code is %s. It is valid for 15 minutes.", code),
	)
}

// SendPasswordResetCode emails a password reset code.
func (s *Service) SendPasswordResetCode(ctx context.Context, to, code string) error {
	return s.sender.Send(ctx, to,
		"Reset Password Code",
		fmt.Sprintf("Your password reset code is %s. It is valid for 2 hours.", code),
	)
}

func (s *Service) notify(p *payment.Payment, subject, body string) {
	ctx := context.Background()

	u, err := s.users.GetUser(ctx, p.UserID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", p.UserID).Msg("unable to resolve notification recipient")
		return
	}

	if err := s.sender.Send(ctx, u.Email, subject, body); err != nil {
		s.logger.Error().Err(err).Str("to", u.Email).Msg("unable to send notification email")
		return
	}

	s.logger.Info().Str("to", u.Email).Str("subject", subject).Msg("notification sent")
}

// LogSender is the default Sender used when no mail provider is configured.
type LogSender struct {
	Logger *zerolog.Logger
}

func (l *LogSender) Send(_ context.Context, to, subject, body string) error {
	l.Logger.Info().
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("email delivery skipped: no provider configured")
	return nil
}
