package repos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platefuel/recipegraph/internal/platform/logger"
	"github.com/platefuel/recipegraph/internal/types"
)

type RecipeAggregateRepo interface {
	// Load reconstructs the full recipe aggregate from the source of truth.
	// Returns (nil, nil) when the root recipe row does not exist; missing
	// dependent rows (zero ingredients, zero facts, zero ratings) are valid.
	Load(ctx context.Context, tx *gorm.DB, recipeID uuid.UUID) (*types.RecipeAggregate, error)
}

type recipeAggregateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecipeAggregateRepo(db *gorm.DB, baseLog *logger.Logger) RecipeAggregateRepo {
	return &recipeAggregateRepo{
		db:  db,
		log: baseLog.With("repo", "RecipeAggregateRepo"),
	}
}

const recipeRowSelect = `
SELECT r.id, r.title, r.description, r.meal_type, r.difficulty,
       r.prep_time_minutes, r.cook_time_minutes, r.total_time_minutes,
       r.servings, r.image_url, r.source_url, r.source_type, r.instructions,
       r.percent_calories_protein, r.percent_calories_fat, r.percent_calories_carbs,
       r.created_at, r.updated_at,
       c.id AS cuisine_id, c.name AS cuisine_name, c.code AS cuisine_code
FROM recipes r
LEFT JOIN cuisines c ON c.id = r.cuisine_id
WHERE r.id = ?`

const ingredientRowSelect = `
SELECT ri.ingredient_id AS id, i.name, ri.quantity, ri.unit,
       ri.quantity_normalized_g, ri.ingredient_order, ri.preparation_note,
       ri.is_optional, ri.product_id
FROM recipe_ingredients ri
LEFT JOIN ingredients i ON i.id = ri.ingredient_id
WHERE ri.recipe_id = ?
ORDER BY ri.ingredient_order ASC NULLS LAST`

const ratingSummarySelect = `
SELECT COALESCE(AVG(rating), 0) AS avg_rating,
       COUNT(*) AS rating_count
FROM recipe_ratings
WHERE recipe_id = ?`

func (r *recipeAggregateRepo) Load(ctx context.Context, tx *gorm.DB, recipeID uuid.UUID) (*types.RecipeAggregate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if recipeID == uuid.Nil {
		return nil, nil
	}

	var agg *types.RecipeAggregate
	// All four reads share one transaction so the aggregate is assembled
	// from a single snapshot, never half-updated across tables.
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var roots []types.RecipeRow
		if err := txx.Raw(recipeRowSelect, recipeID).Scan(&roots).Error; err != nil {
			return fmt.Errorf("load recipe: %w", err)
		}
		if len(roots) == 0 {
			return nil
		}

		var facts []types.NutritionFact
		if err := txx.Where("entity_type = ? AND entity_id = ?", "recipe", recipeID).
			Find(&facts).Error; err != nil {
			return fmt.Errorf("load nutrition facts: %w", err)
		}

		var ingredients []types.IngredientRow
		if err := txx.Raw(ingredientRowSelect, recipeID).Scan(&ingredients).Error; err != nil {
			return fmt.Errorf("load ingredients: %w", err)
		}

		var ratings types.RatingSummary
		if err := txx.Raw(ratingSummarySelect, recipeID).Scan(&ratings).Error; err != nil {
			return fmt.Errorf("load ratings: %w", err)
		}

		agg = &types.RecipeAggregate{
			Recipe:         roots[0],
			Ingredients:    ingredients,
			NutritionFacts: facts,
			Ratings:        ratings,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agg, nil
}
