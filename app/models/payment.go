package models

import "time"

// Payment records one redeemed payment intent. The unique index on
// PaymentIntentID is what makes a purchase grant credits at most once:
// a replayed confirmation fails the insert instead of touching the ledger.
type Payment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	PaymentIntentID string    `gorm:"uniqueIndex;type:varchar(255);not null" json:"payment_intent_id"`
	AmountUSD       int64     `gorm:"not null" json:"amount_usd"`
	Credits         int       `gorm:"not null" json:"credits"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
