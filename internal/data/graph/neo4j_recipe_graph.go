package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/platefuel/recipegraph/internal/platform/logger"
	"github.com/platefuel/recipegraph/internal/platform/neo4jdb"
	"github.com/platefuel/recipegraph/internal/types"
)

// Writer applies recipe aggregates to the graph store. Both operations are
// idempotent: apply always rewrites the subgraph to match the aggregate and
// delete of a missing node is a no-op success.
type Writer struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewWriter(client *neo4jdb.Client, baseLog *logger.Logger) *Writer {
	return &Writer{
		client: client,
		log:    baseLog.With("writer", "RecipeGraph"),
	}
}

func (w *Writer) UpsertRecipeAggregate(ctx context.Context, agg *types.RecipeAggregate) error {
	return UpsertRecipeAggregate(ctx, w.client, w.log, agg)
}

func (w *Writer) DeleteRecipe(ctx context.Context, recipeID uuid.UUID) error {
	return DeleteRecipe(ctx, w.client, w.log, recipeID)
}

var schemaStatements = []string{
	`CREATE CONSTRAINT recipe_id_unique IF NOT EXISTS FOR (r:Recipe) REQUIRE r.id IS UNIQUE`,
	`CREATE CONSTRAINT cuisine_id_unique IF NOT EXISTS FOR (c:Cuisine) REQUIRE c.id IS UNIQUE`,
	`CREATE CONSTRAINT ingredient_id_unique IF NOT EXISTS FOR (i:Ingredient) REQUIRE i.id IS UNIQUE`,
	`CREATE CONSTRAINT product_id_unique IF NOT EXISTS FOR (p:Product) REQUIRE p.id IS UNIQUE`,
	`CREATE CONSTRAINT recipe_nutrition_value_id_unique IF NOT EXISTS FOR (nv:RecipeNutritionValue) REQUIRE nv.id IS UNIQUE`,
}

// UpsertRecipeAggregate rewrites the recipe's subgraph so it equals the
// aggregate's current state, regardless of what the graph held before.
// Relationship sets that have no natural old-edge to update (ingredients,
// products, owned nutrition values) are deleted and recreated wholesale;
// convergence over write amplification.
func UpsertRecipeAggregate(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, agg *types.RecipeAggregate) error {
	if client == nil || client.Driver == nil {
		return fmt.Errorf("recipe graph upsert: missing neo4j client")
	}
	if agg == nil || agg.Recipe.ID == uuid.Nil {
		return fmt.Errorf("recipe graph upsert: missing recipe id")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	recipeID := agg.Recipe.ID.String()
	props := recipeProps(agg)
	ingredients := ingredientParams(agg.Ingredients)
	products := productParams(agg.Ingredients)
	facts := nutritionParams(agg.NutritionFacts)

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	// Schema helpers are best-effort; they may fail for restricted users.
	for _, stmt := range schemaStatements {
		if res, err := session.Run(ctx, stmt, nil); err != nil {
			if log != nil {
				log.Warn("neo4j schema init failed (continuing)", "error", err)
			}
			break
		} else {
			_, _ = res.Consume(ctx)
		}
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Root node: overwrite every scalar unconditionally.
		if err := runStatement(ctx, tx, `
MERGE (r:Recipe {id: $id})
SET r += $props
`, map[string]any{"id": recipeID, "props": props}); err != nil {
			return nil, err
		}

		// Cuisine is 0-or-1: drop the old edge before creating the new one
		// so a cuisine change never accumulates a second edge.
		if err := runStatement(ctx, tx, `
MATCH (r:Recipe {id: $id})-[old:HAS_CUISINE]->(:Cuisine)
DELETE old
`, map[string]any{"id": recipeID}); err != nil {
			return nil, err
		}
		if agg.Recipe.CuisineID != nil && *agg.Recipe.CuisineID != uuid.Nil {
			if err := runStatement(ctx, tx, `
MATCH (r:Recipe {id: $id})
MERGE (c:Cuisine {id: $cuisine_id})
SET c.name = $name,
    c.code = $code
MERGE (r)-[:HAS_CUISINE]->(c)
`, map[string]any{
				"id":         recipeID,
				"cuisine_id": agg.Recipe.CuisineID.String(),
				"name":       strOrNil(agg.Recipe.CuisineName),
				"code":       strOrNil(agg.Recipe.CuisineCode),
			}); err != nil {
				return nil, err
			}
		}

		// Ingredient and product edges: full replacement. Removed
		// ingredients leave no edge behind.
		if err := runStatement(ctx, tx, `
MATCH (r:Recipe {id: $id})-[old:USES_INGREDIENT]->(:Ingredient)
DELETE old
`, map[string]any{"id": recipeID}); err != nil {
			return nil, err
		}
		if err := runStatement(ctx, tx, `
MATCH (r:Recipe {id: $id})-[old:USES_PRODUCT]->(:Product)
DELETE old
`, map[string]any{"id": recipeID}); err != nil {
			return nil, err
		}
		if len(ingredients) > 0 {
			if err := runStatement(ctx, tx, `
MATCH (r:Recipe {id: $id})
UNWIND $ingredients AS ing
MERGE (i:Ingredient {id: ing.id})
SET i.name = coalesce(ing.name, i.name)
MERGE (r)-[ri:USES_INGREDIENT]->(i)
SET ri.quantity = ing.quantity,
    ri.unit = ing.unit,
    ri.quantity_normalized_g = ing.quantity_normalized_g,
    ri.ingredient_order = ing.ingredient_order,
    ri.preparation_note = ing.preparation_note,
    ri.is_optional = ing.is_optional
`, map[string]any{"id": recipeID, "ingredients": ingredients}); err != nil {
				return nil, err
			}
		}
		if len(products) > 0 {
			if err := runStatement(ctx, tx, `
MATCH (r:Recipe {id: $id})
UNWIND $products AS p
MERGE (pr:Product {id: p.product_id})
MERGE (r)-[rp:USES_PRODUCT]->(pr)
SET rp.quantity = p.quantity,
    rp.unit = p.unit,
    rp.quantity_normalized_g = p.quantity_normalized_g,
    rp.ingredient_order = p.ingredient_order
`, map[string]any{"id": recipeID, "products": products}); err != nil {
				return nil, err
			}
		}

		// Nutrition value nodes are owned by the recipe: delete them
		// outright, then recreate from the current fact list.
		if err := runStatement(ctx, tx, `
MATCH (r:Recipe {id: $id})-[:HAS_NUTRITION_VALUE]->(nv:RecipeNutritionValue)
DETACH DELETE nv
`, map[string]any{"id": recipeID}); err != nil {
			return nil, err
		}
		if len(facts) > 0 {
			res, err := tx.Run(ctx, `
MATCH (r:Recipe {id: $id})
UNWIND $facts AS nf
MATCH (nd:NutrientDefinition {id: nf.nutrient_id})
MERGE (nv:RecipeNutritionValue {id: nf.id})
SET nv.amount = nf.amount,
    nv.unit = nf.unit,
    nv.per_amount = nf.per_amount,
    nv.per_amount_grams = nf.per_amount_grams,
    nv.percent_daily_value = nf.percent_daily_value,
    nv.data_source = nf.data_source,
    nv.confidence_score = nf.confidence_score,
    nv.measurement_date = nf.measurement_date
MERGE (r)-[:HAS_NUTRITION_VALUE]->(nv)
MERGE (nv)-[:OF_NUTRIENT]->(nd)
RETURN count(DISTINCT nv) AS created
`, map[string]any{"id": recipeID, "facts": facts})
			if err != nil {
				return nil, err
			}
			rec, err := res.Single(ctx)
			if err != nil {
				return nil, err
			}
			created, _ := rec.Get("created")
			// NutrientDefinition nodes are a precondition. The MATCH above
			// silently drops facts whose definition is missing, so a
			// shortfall means a broken dependency and fails the event.
			if n, ok := created.(int64); !ok || int(n) != len(facts) {
				return nil, fmt.Errorf("recipe graph upsert: %d of %d nutrition facts reference a missing nutrient definition", len(facts)-int(asInt64(created)), len(facts))
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("recipe graph upsert %s: %w", recipeID, err)
	}
	return nil
}

// DeleteRecipe removes the recipe node, every relationship touching it and
// the nutrition value nodes it owns. Missing node is a no-op success.
func DeleteRecipe(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, recipeID uuid.UUID) error {
	if client == nil || client.Driver == nil {
		return fmt.Errorf("recipe graph delete: missing neo4j client")
	}
	if recipeID == uuid.Nil {
		return fmt.Errorf("recipe graph delete: missing recipe id")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := runStatement(ctx, tx, `
MATCH (r:Recipe {id: $id})-[:HAS_NUTRITION_VALUE]->(nv:RecipeNutritionValue)
DETACH DELETE nv
`, map[string]any{"id": recipeID.String()}); err != nil {
			return nil, err
		}
		if err := runStatement(ctx, tx, `
MATCH (r:Recipe {id: $id})
DETACH DELETE r
`, map[string]any{"id": recipeID.String()}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("recipe graph delete %s: %w", recipeID, err)
	}
	return nil
}

func runStatement(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, params map[string]any) error {
	res, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func recipeProps(agg *types.RecipeAggregate) map[string]any {
	r := agg.Recipe
	return map[string]any{
		"title":                    r.Title,
		"description":              strOrNil(r.Description),
		"meal_type":                strOrNil(r.MealType),
		"difficulty":               strOrNil(r.Difficulty),
		"prep_time_minutes":        intOrNil(r.PrepTimeMinutes),
		"cook_time_minutes":        intOrNil(r.CookTimeMinutes),
		"total_time_minutes":       intOrNil(r.TotalTimeMinutes),
		"servings":                 intOrNil(r.Servings),
		"image_url":                strOrNil(r.ImageURL),
		"source_url":               strOrNil(r.SourceURL),
		"source_type":              strOrNil(r.SourceType),
		"instructions":             strOrNil(r.Instructions),
		"percent_calories_protein": floatOrNil(r.PercentCaloriesProtein),
		"percent_calories_fat":     floatOrNil(r.PercentCaloriesFat),
		"percent_calories_carbs":   floatOrNil(r.PercentCaloriesCarbs),
		"avg_rating":               agg.Ratings.AvgRating,
		"rating_count":             agg.Ratings.RatingCount,
		"created_at":               r.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":               r.UpdatedAt.UTC().Format(time.RFC3339Nano),
		"synced_at":                time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// ingredientParams preserves the loader's order; ingredient_order rides along
// as a relationship property so readers can reconstruct the sequence.
func ingredientParams(rows []types.IngredientRow) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if row.ID == uuid.Nil {
			continue
		}
		out = append(out, map[string]any{
			"id":                    row.ID.String(),
			"name":                  strOrNil(row.Name),
			"quantity":              floatOrNil(row.Quantity),
			"unit":                  strOrNil(row.Unit),
			"quantity_normalized_g": floatOrNil(row.QuantityNormalizedG),
			"ingredient_order":      intOrNil(row.IngredientOrder),
			"preparation_note":      strOrNil(row.PreparationNote),
			"is_optional":           row.IsOptional,
		})
	}
	return out
}

func productParams(rows []types.IngredientRow) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if row.ProductID == nil || *row.ProductID == uuid.Nil {
			continue
		}
		out = append(out, map[string]any{
			"product_id":            row.ProductID.String(),
			"quantity":              floatOrNil(row.Quantity),
			"unit":                  strOrNil(row.Unit),
			"quantity_normalized_g": floatOrNil(row.QuantityNormalizedG),
			"ingredient_order":      intOrNil(row.IngredientOrder),
		})
	}
	return out
}

func nutritionParams(facts []types.NutritionFact) []map[string]any {
	out := make([]map[string]any, 0, len(facts))
	for _, f := range facts {
		if f.ID == uuid.Nil || f.NutrientID == uuid.Nil {
			continue
		}
		out = append(out, map[string]any{
			"id":                  f.ID.String(),
			"nutrient_id":         f.NutrientID.String(),
			"amount":              f.Amount,
			"unit":                f.Unit,
			"per_amount":          floatOrNil(f.PerAmount),
			"per_amount_grams":    floatOrNil(f.PerAmountGrams),
			"percent_daily_value": floatOrNil(f.PercentDailyValue),
			"data_source":         strOrNil(f.DataSource),
			"confidence_score":    floatOrNil(f.ConfidenceScore),
			"measurement_date":    timeOrNil(f.MeasurementDate),
		})
	}
	return out
}

func strOrNil(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func timeOrNil(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(time.RFC3339Nano)
}

func asInt64(v any) int64 {
	n, _ := v.(int64)
	return n
}
