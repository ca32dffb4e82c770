package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
)

const (
	// PackPriceUSD is the only purchasable pack, a flat $20.
	PackPriceUSD int64 = 20
	// PackCredits is granted in full when the pack's payment succeeds.
	PackCredits = 100
)

// ErrPaymentIncomplete signals a confirm attempt against an intent the
// processor does not report as succeeded. No credits change hands.
var ErrPaymentIncomplete = errors.New("payment not completed")

// IntentAPI is the processor surface the purchase flow needs.
type IntentAPI interface {
	CreateIntent(ctx context.Context, amountUSD int64) (*Intent, error)
	GetIntent(ctx context.Context, intentID string) (*Intent, error)
}

// CreditLedger grants credits after a verified purchase.
type CreditLedger interface {
	Adjust(ctx context.Context, userID uint, delta int) (int, error)
}

// Service runs the credit purchase flow: open an intent for the fixed pack,
// then grant credits only after re-reading the intent from the processor and
// seeing it succeeded. Each intent grants at most once, tracked by the
// redemption store.
type Service struct {
	api         IntentAPI
	credits     CreditLedger
	redemptions RedemptionStore
}

func NewService(api IntentAPI, credits CreditLedger, redemptions RedemptionStore) *Service {
	return &Service{api: api, credits: credits, redemptions: redemptions}
}

// BeginPurchase opens a payment intent for the credit pack and hands the
// client secret back for the browser-side card flow.
func (s *Service) BeginPurchase(ctx context.Context, userID uint) (*Intent, error) {
	intent, err := s.api.CreateIntent(ctx, PackPriceUSD)
	if err != nil {
		log.Errorf("[Payment] intent creation failed for user %d: %v", userID, err)
		return nil, err
	}
	log.Infof("[Payment] opened intent %s for user %d", intent.ID, userID)
	return intent, nil
}

// ConfirmPurchase verifies the intent server-side and grants the pack's
// credits exactly once per intent. The intent status is re-read from the
// processor; a client-reported success is never trusted on its own, and a
// replayed confirmation fails at the redemption store before any grant.
func (s *Service) ConfirmPurchase(ctx context.Context, userID uint, intentID string) (int, error) {
	intent, err := s.api.GetIntent(ctx, intentID)
	if err != nil {
		return 0, fmt.Errorf("verify intent: %w", err)
	}
	if intent.Status != StatusSucceeded {
		log.Warnf("[Payment] confirm rejected for user %d: intent %s status %s", userID, intentID, intent.Status)
		return 0, ErrPaymentIncomplete
	}

	if err := s.redemptions.Redeem(ctx, userID, intentID, PackPriceUSD, PackCredits); err != nil {
		if errors.Is(err, ErrAlreadyRedeemed) {
			log.Warnf("[Payment] replayed confirm for user %d: intent %s was already redeemed", userID, intentID)
			return 0, ErrAlreadyRedeemed
		}
		return 0, fmt.Errorf("record redemption: %w", err)
	}

	balance, err := s.credits.Adjust(ctx, userID, PackCredits)
	if err != nil {
		// The charge went through but the grant failed. Surface it loudly,
		// support resolves it from the processor's record.
		log.Errorf("[Payment] credit grant failed for user %d after intent %s succeeded: %v", userID, intentID, err)
		return 0, err
	}
	log.Infof("[Payment] granted %d credits to user %d, balance now %d", PackCredits, userID, balance)
	return balance, nil
}
