package types

import (
	"time"

	"github.com/google/uuid"
)

// RecipeRow is the root entity read with its optional cuisine joined in.
// The cuisine columns are nil when the recipe has no cuisine assigned.
type RecipeRow struct {
	ID                     uuid.UUID  `gorm:"column:id"`
	Title                  string     `gorm:"column:title"`
	Description            *string    `gorm:"column:description"`
	MealType               *string    `gorm:"column:meal_type"`
	Difficulty             *string    `gorm:"column:difficulty"`
	PrepTimeMinutes        *int       `gorm:"column:prep_time_minutes"`
	CookTimeMinutes        *int       `gorm:"column:cook_time_minutes"`
	TotalTimeMinutes       *int       `gorm:"column:total_time_minutes"`
	Servings               *int       `gorm:"column:servings"`
	ImageURL               *string    `gorm:"column:image_url"`
	SourceURL              *string    `gorm:"column:source_url"`
	SourceType             *string    `gorm:"column:source_type"`
	Instructions           *string    `gorm:"column:instructions"`
	PercentCaloriesProtein *float64   `gorm:"column:percent_calories_protein"`
	PercentCaloriesFat     *float64   `gorm:"column:percent_calories_fat"`
	PercentCaloriesCarbs   *float64   `gorm:"column:percent_calories_carbs"`
	CreatedAt              time.Time  `gorm:"column:created_at"`
	UpdatedAt              time.Time  `gorm:"column:updated_at"`
	CuisineID              *uuid.UUID `gorm:"column:cuisine_id"`
	CuisineName            *string    `gorm:"column:cuisine_name"`
	CuisineCode            *string    `gorm:"column:cuisine_code"`
}

// IngredientRow is one ordered ingredient of a recipe with its optional
// linked product.
type IngredientRow struct {
	ID                  uuid.UUID  `gorm:"column:id"`
	Name                *string    `gorm:"column:name"`
	Quantity            *float64   `gorm:"column:quantity"`
	Unit                *string    `gorm:"column:unit"`
	QuantityNormalizedG *float64   `gorm:"column:quantity_normalized_g"`
	IngredientOrder     *int       `gorm:"column:ingredient_order"`
	PreparationNote     *string    `gorm:"column:preparation_note"`
	IsOptional          bool       `gorm:"column:is_optional"`
	ProductID           *uuid.UUID `gorm:"column:product_id"`
}

// RatingSummary is derived at read time; zero rows yields {0, 0}, which is a
// valid present state.
type RatingSummary struct {
	AvgRating   float64 `gorm:"column:avg_rating"`
	RatingCount int64   `gorm:"column:rating_count"`
}

// RecipeAggregate is the unit of graph synchronization: everything needed to
// rewrite one recipe's subgraph.
type RecipeAggregate struct {
	Recipe         RecipeRow
	Ingredients    []IngredientRow
	NutritionFacts []NutritionFact
	Ratings        RatingSummary
}
