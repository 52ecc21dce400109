package types

import (
	"github.com/google/uuid"
)

type Ingredient struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"column:name;not null" json:"name"`
}

func (Ingredient) TableName() string { return "ingredients" }

// RecipeIngredient is the ordered association between a recipe and its
// ingredients. IngredientOrder is nullable; loads sort nulls last.
type RecipeIngredient struct {
	RecipeID            uuid.UUID  `gorm:"type:uuid;column:recipe_id;primaryKey" json:"recipe_id"`
	IngredientID        uuid.UUID  `gorm:"type:uuid;column:ingredient_id;primaryKey" json:"ingredient_id"`
	Quantity            *float64   `gorm:"column:quantity" json:"quantity,omitempty"`
	Unit                *string    `gorm:"column:unit" json:"unit,omitempty"`
	QuantityNormalizedG *float64   `gorm:"column:quantity_normalized_g" json:"quantity_normalized_g,omitempty"`
	IngredientOrder     *int       `gorm:"column:ingredient_order" json:"ingredient_order,omitempty"`
	PreparationNote     *string    `gorm:"column:preparation_note" json:"preparation_note,omitempty"`
	IsOptional          bool       `gorm:"column:is_optional;not null;default:false" json:"is_optional"`
	ProductID           *uuid.UUID `gorm:"type:uuid;column:product_id" json:"product_id,omitempty"`
}

func (RecipeIngredient) TableName() string { return "recipe_ingredients" }
