package ledger

import (
	"errors"

	"gorm.io/gorm"

	"github.com/focusdiff/focusdiff/app/models"
)

// Repository provides the DB operations used by the ledger service. The
// mutation is a single conditional UPDATE so the non-negative invariant is
// enforced by the store, not by a read-modify-write in application code.
type Repository interface {
	Exists(userID uint) (bool, error)
	Balance(userID uint) (int, bool, error)
	ApplyDelta(userID uint, delta int) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a ledger repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Exists(userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}

// Balance returns the current balance and whether a ledger entry exists.
func (r *gormRepository) Balance(userID uint) (int, bool, error) {
	var user models.User
	err := r.db.Select("credits_remaining").First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return user.CreditsRemaining, true, nil
}

// ApplyDelta adds delta (may be negative) to the balance, clamped at zero.
func (r *gormRepository) ApplyDelta(userID uint, delta int) (int64, error) {
	tx := r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("credits_remaining", gorm.Expr("GREATEST(0, credits_remaining + ?)", delta))
	return tx.RowsAffected, tx.Error
}
