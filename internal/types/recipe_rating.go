package types

import (
	"time"

	"github.com/google/uuid"
)

type RecipeRating struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RecipeID  uuid.UUID `gorm:"type:uuid;column:recipe_id;not null;index" json:"recipe_id"`
	Rating    float64   `gorm:"column:rating;not null" json:"rating"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (RecipeRating) TableName() string { return "recipe_ratings" }
