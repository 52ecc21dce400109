package types

import (
	"time"

	"github.com/google/uuid"
)

type Recipe struct {
	ID                     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title                  string     `gorm:"column:title;not null" json:"title"`
	Description            *string    `gorm:"column:description" json:"description,omitempty"`
	MealType               *string    `gorm:"column:meal_type" json:"meal_type,omitempty"`
	Difficulty             *string    `gorm:"column:difficulty" json:"difficulty,omitempty"`
	PrepTimeMinutes        *int       `gorm:"column:prep_time_minutes" json:"prep_time_minutes,omitempty"`
	CookTimeMinutes        *int       `gorm:"column:cook_time_minutes" json:"cook_time_minutes,omitempty"`
	TotalTimeMinutes       *int       `gorm:"column:total_time_minutes" json:"total_time_minutes,omitempty"`
	Servings               *int       `gorm:"column:servings" json:"servings,omitempty"`
	ImageURL               *string    `gorm:"column:image_url" json:"image_url,omitempty"`
	SourceURL              *string    `gorm:"column:source_url" json:"source_url,omitempty"`
	SourceType             *string    `gorm:"column:source_type" json:"source_type,omitempty"`
	Instructions           *string    `gorm:"column:instructions" json:"instructions,omitempty"`
	PercentCaloriesProtein *float64   `gorm:"column:percent_calories_protein" json:"percent_calories_protein,omitempty"`
	PercentCaloriesFat     *float64   `gorm:"column:percent_calories_fat" json:"percent_calories_fat,omitempty"`
	PercentCaloriesCarbs   *float64   `gorm:"column:percent_calories_carbs" json:"percent_calories_carbs,omitempty"`
	CuisineID              *uuid.UUID `gorm:"type:uuid;column:cuisine_id;index" json:"cuisine_id,omitempty"`
	CreatedAt              time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Recipe) TableName() string { return "recipes" }

type Cuisine struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"column:name;not null" json:"name"`
	Code string    `gorm:"column:code;not null" json:"code"`
}

func (Cuisine) TableName() string { return "cuisines" }
