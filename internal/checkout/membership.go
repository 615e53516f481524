package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dylanleonard80/peptidefoundry/internal/domain"
	"github.com/dylanleonard80/peptidefoundry/internal/membership"
	"go.uber.org/zap"
)

// ActivateMembership runs the capture handshake for a membership
// purchase. Same provider-side verification as an order capture, but the
// server-side check is a fixed price and the recorder writes a
// membership row instead of an order.
func (s *Service) ActivateMembership(ctx context.Context, userID, providerOrderID string) (domain.MembershipStatus, error) {
	att := newAttempt(domain.CheckoutStatePaymentAuthorized)
	if err := att.to(domain.CheckoutStateCapturing); err != nil {
		return domain.Guest, err
	}

	capture, err := s.captureApproved(ctx, providerOrderID)
	if err != nil {
		return domain.Guest, err
	}

	if !capture.Amount.Equal(s.membershipPrice) {
		return domain.Guest, s.verificationFailure(capture, "captured amount does not match membership price",
			zap.String("expected", s.membershipPrice.String()))
	}

	renewsAt := time.Now().UTC().AddDate(1, 0, 0)
	if err := s.activator.Activate(ctx, userID, capture.TransactionID, renewsAt); err != nil {
		if errors.Is(err, membership.ErrDuplicateActivation) {
			s.logger.Info("duplicate membership activation",
				zap.String("user_id", userID),
				zap.String("transaction_id", capture.TransactionID))
			return s.members.Status(ctx, userID)
		}
		return domain.Guest, fmt.Errorf("failed to activate membership: %w", err)
	}

	if err := att.to(domain.CheckoutStateCaptured); err != nil {
		return domain.Guest, err
	}
	s.logger.Info("membership activated",
		zap.String("user_id", userID),
		zap.String("transaction_id", capture.TransactionID))
	return domain.MembershipStatus{Active: true, RenewsOrExpiresAt: &renewsAt}, nil
}
