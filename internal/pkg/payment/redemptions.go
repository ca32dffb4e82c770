package payment

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/focusdiff/focusdiff/app/models"
)

// ErrAlreadyRedeemed signals a confirm attempt for an intent that already
// granted its credits. The ledger stays untouched.
var ErrAlreadyRedeemed = errors.New("payment intent already redeemed")

// RedemptionStore marks payment intents as redeemed. Redeem must be atomic
// per intent ID so two racing confirmations cannot both claim it.
type RedemptionStore interface {
	Redeem(ctx context.Context, userID uint, intentID string, amountUSD int64, credits int) error
}

type gormRedemptionStore struct {
	db *gorm.DB
}

// NewRedemptionStore creates a redemption store on the payments table. The
// unique index on payment_intent_id does the at-most-once bookkeeping.
func NewRedemptionStore(db *gorm.DB) RedemptionStore {
	return &gormRedemptionStore{db: db}
}

func (s *gormRedemptionStore) Redeem(ctx context.Context, userID uint, intentID string, amountUSD int64, credits int) error {
	_ = ctx
	row := models.Payment{
		UserID:          userID,
		PaymentIntentID: intentID,
		AmountUSD:       amountUSD,
		Credits:         credits,
	}
	if err := s.db.Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyRedeemed
		}
		return err
	}
	return nil
}
