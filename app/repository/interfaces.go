package repository

import (
	"gorm.io/gorm"

	"github.com/focusdiff/focusdiff/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	Count() (int64, error)
}

// GenerationRepository defines the interface for generation history operations
type GenerationRepository interface {
	Create(generation *models.Generation) error
	GetByUUID(uuid string) (*models.Generation, error)
	GetByUserID(userID uint, offset, limit int) ([]models.Generation, error)
	LatestImageByUserID(userID uint) (*models.Generation, error)
	Update(generation *models.Generation) error
	CountByUserID(userID uint) (int64, error)
}

// Repositories bundles all repository instances
type Repositories struct {
	User       UserRepository
	Generation GenerationRepository
}

// NewRepositories creates all repositories from a single DB handle
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		Generation: NewGenerationRepository(db),
	}
}
