package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	GenerationKindImage = "image"
	GenerationKindVideo = "video"
)

// Generation records one successful costed operation. Failed external calls
// are not recorded; they cost nothing and leave no history row.
type Generation struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UUID         string         `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	UserID       uint           `gorm:"index" json:"user_id"`
	Kind         string         `gorm:"type:varchar(10);index" json:"kind" validate:"oneof=image video"`
	Prompt       string         `gorm:"type:text" json:"prompt"`
	ImageSize    string         `gorm:"type:varchar(30)" json:"image_size,omitempty"`
	Steps        int            `gorm:"default:0" json:"steps,omitempty"`
	Movement     int            `gorm:"default:0" json:"movement,omitempty"`
	Similarity   float64        `gorm:"default:0" json:"similarity,omitempty"`
	ResultURL    string         `gorm:"type:varchar(2048)" json:"result_url"`
	ThumbnailURL string         `gorm:"type:varchar(2048);default:null" json:"thumbnail_url,omitempty"`
	ArchiveKey   string         `gorm:"type:varchar(512);default:null" json:"-"`
	Cost         int            `gorm:"not null" json:"cost"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns the public UUID if the caller did not set one.
func (g *Generation) BeforeCreate(tx *gorm.DB) error {
	if g.UUID == "" {
		g.UUID = uuid.New().String()
	}
	return nil
}
