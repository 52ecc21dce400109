package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/platefuel/recipegraph/internal/repos/testutil"
)

func ptrInt(v int) *int { return &v }

func TestRecipeAggregateRepo_Load_Absent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewRecipeAggregateRepo(db, testutil.Logger(t))

	agg, err := repo.Load(ctx, tx, uuid.New())
	if err != nil {
		t.Fatalf("Load of missing recipe must not error, got %v", err)
	}
	if agg != nil {
		t.Fatalf("Load of missing recipe must return nil, got %+v", agg)
	}
}

func TestRecipeAggregateRepo_Load_FullAggregate(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewRecipeAggregateRepo(db, testutil.Logger(t))

	cuisine := testutil.SeedCuisine(t, ctx, tx, "Italian", "it")
	recipe := testutil.SeedRecipe(t, ctx, tx, "Carbonara", &cuisine.ID)

	// Ordinals 2, null, 1 must load as 1, 2, null.
	second := testutil.SeedIngredient(t, ctx, tx, "Guanciale")
	unordered := testutil.SeedIngredient(t, ctx, tx, "Pepper")
	first := testutil.SeedIngredient(t, ctx, tx, "Spaghetti")
	testutil.SeedRecipeIngredient(t, ctx, tx, recipe.ID, second.ID, ptrInt(2))
	testutil.SeedRecipeIngredient(t, ctx, tx, recipe.ID, unordered.ID, nil)
	testutil.SeedRecipeIngredient(t, ctx, tx, recipe.ID, first.ID, ptrInt(1))

	nutrientID := uuid.New()
	testutil.SeedNutritionFact(t, ctx, tx, recipe.ID, nutrientID, 12.5)

	testutil.SeedRating(t, ctx, tx, recipe.ID, 4)
	testutil.SeedRating(t, ctx, tx, recipe.ID, 5)

	agg, err := repo.Load(ctx, tx, recipe.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if agg == nil {
		t.Fatalf("Load returned nil for existing recipe")
	}

	if agg.Recipe.ID != recipe.ID || agg.Recipe.Title != "Carbonara" {
		t.Fatalf("root row: %+v", agg.Recipe)
	}
	if agg.Recipe.CuisineID == nil || *agg.Recipe.CuisineID != cuisine.ID {
		t.Fatalf("cuisine id not joined: %v", agg.Recipe.CuisineID)
	}
	if agg.Recipe.CuisineName == nil || *agg.Recipe.CuisineName != "Italian" {
		t.Fatalf("cuisine name not joined: %v", agg.Recipe.CuisineName)
	}

	if len(agg.Ingredients) != 3 {
		t.Fatalf("ingredients: expected 3, got %d", len(agg.Ingredients))
	}
	if agg.Ingredients[0].ID != first.ID || agg.Ingredients[1].ID != second.ID || agg.Ingredients[2].ID != unordered.ID {
		t.Fatalf("ingredient order wrong: %v %v %v",
			agg.Ingredients[0].ID, agg.Ingredients[1].ID, agg.Ingredients[2].ID)
	}
	if agg.Ingredients[2].IngredientOrder != nil {
		t.Fatalf("null ordinal must stay nil, got %v", *agg.Ingredients[2].IngredientOrder)
	}
	if agg.Ingredients[0].Name == nil || *agg.Ingredients[0].Name != "Spaghetti" {
		t.Fatalf("ingredient name not joined: %v", agg.Ingredients[0].Name)
	}

	if len(agg.NutritionFacts) != 1 || agg.NutritionFacts[0].NutrientID != nutrientID {
		t.Fatalf("nutrition facts: %+v", agg.NutritionFacts)
	}

	if agg.Ratings.RatingCount != 2 || agg.Ratings.AvgRating != 4.5 {
		t.Fatalf("ratings: %+v", agg.Ratings)
	}
}

func TestRecipeAggregateRepo_Load_NoDependents(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewRecipeAggregateRepo(db, testutil.Logger(t))

	recipe := testutil.SeedRecipe(t, ctx, tx, "Toast", nil)

	agg, err := repo.Load(ctx, tx, recipe.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if agg == nil {
		t.Fatalf("recipe without dependents is present, not absent")
	}
	if agg.Recipe.CuisineID != nil {
		t.Fatalf("no cuisine expected, got %v", agg.Recipe.CuisineID)
	}
	if len(agg.Ingredients) != 0 || len(agg.NutritionFacts) != 0 {
		t.Fatalf("expected empty dependents, got %d ingredients / %d facts",
			len(agg.Ingredients), len(agg.NutritionFacts))
	}
	if agg.Ratings.AvgRating != 0 || agg.Ratings.RatingCount != 0 {
		t.Fatalf("zero ratings must default to {0,0}, got %+v", agg.Ratings)
	}
}
