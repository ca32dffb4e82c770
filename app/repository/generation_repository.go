package repository

import (
	"gorm.io/gorm"

	"github.com/focusdiff/focusdiff/app/models"
)

// generationRepository implements the GenerationRepository interface
type generationRepository struct {
	db *gorm.DB
}

// NewGenerationRepository creates a new generation repository instance
func NewGenerationRepository(db *gorm.DB) GenerationRepository {
	return &generationRepository{db: db}
}

// Create stores a new generation history row
func (r *generationRepository) Create(generation *models.Generation) error {
	return r.db.Create(generation).Error
}

// GetByUUID retrieves a generation by its public UUID
func (r *generationRepository) GetByUUID(uuid string) (*models.Generation, error) {
	var g models.Generation
	err := r.db.Where("uuid = ?", uuid).First(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetByUserID retrieves a user's generations, newest first
func (r *generationRepository) GetByUserID(userID uint, offset, limit int) ([]models.Generation, error) {
	var gens []models.Generation
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&gens).Error
	return gens, err
}

// LatestImageByUserID returns the most recent successful image generation,
// used as the animation source when the client does not resend the URL.
func (r *generationRepository) LatestImageByUserID(userID uint) (*models.Generation, error) {
	var g models.Generation
	err := r.db.Where("user_id = ? AND kind = ?", userID, models.GenerationKindImage).
		Order("created_at DESC").
		First(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Update updates an existing generation row (archive key, thumbnail)
func (r *generationRepository) Update(generation *models.Generation) error {
	return r.db.Save(generation).Error
}

// CountByUserID returns the number of generations recorded for a user
func (r *generationRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Generation{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
