package testutil

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/platefuel/recipegraph/internal/platform/logger"
	"github.com/platefuel/recipegraph/internal/types"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			dbErr = errMissingDSN
			return
		}

		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if err != nil {
			dbErr = err
			return
		}

		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			dbErr = err
			return
		}

		if err := autoMigrateAll(db); err != nil {
			dbErr = err
			return
		}
	})

	if errors.Is(dbErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run repo integration tests")
	}
	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return db
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

func autoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.OutboxEvent{},
		&types.Recipe{},
		&types.Cuisine{},
		&types.Ingredient{},
		&types.RecipeIngredient{},
		&types.NutritionFact{},
		&types.RecipeRating{},
	)
}

func SeedCuisine(tb testing.TB, ctx context.Context, tx *gorm.DB, name, code string) *types.Cuisine {
	tb.Helper()
	c := &types.Cuisine{ID: uuid.New(), Name: name, Code: code}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed cuisine: %v", err)
	}
	return c
}

func SeedRecipe(tb testing.TB, ctx context.Context, tx *gorm.DB, title string, cuisineID *uuid.UUID) *types.Recipe {
	tb.Helper()
	now := time.Now().UTC()
	r := &types.Recipe{
		ID:        uuid.New(),
		Title:     title,
		CuisineID: cuisineID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed recipe: %v", err)
	}
	return r
}

func SeedIngredient(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Ingredient {
	tb.Helper()
	i := &types.Ingredient{ID: uuid.New(), Name: name}
	if err := tx.WithContext(ctx).Create(i).Error; err != nil {
		tb.Fatalf("seed ingredient: %v", err)
	}
	return i
}

func SeedRecipeIngredient(tb testing.TB, ctx context.Context, tx *gorm.DB, recipeID, ingredientID uuid.UUID, order *int) *types.RecipeIngredient {
	tb.Helper()
	ri := &types.RecipeIngredient{
		RecipeID:        recipeID,
		IngredientID:    ingredientID,
		IngredientOrder: order,
	}
	if err := tx.WithContext(ctx).Create(ri).Error; err != nil {
		tb.Fatalf("seed recipe ingredient: %v", err)
	}
	return ri
}

func SeedNutritionFact(tb testing.TB, ctx context.Context, tx *gorm.DB, recipeID, nutrientID uuid.UUID, amount float64) *types.NutritionFact {
	tb.Helper()
	nf := &types.NutritionFact{
		ID:         uuid.New(),
		EntityType: "recipe",
		EntityID:   recipeID,
		NutrientID: nutrientID,
		Amount:     amount,
		Unit:       "g",
	}
	if err := tx.WithContext(ctx).Create(nf).Error; err != nil {
		tb.Fatalf("seed nutrition fact: %v", err)
	}
	return nf
}

func SeedRating(tb testing.TB, ctx context.Context, tx *gorm.DB, recipeID uuid.UUID, rating float64) *types.RecipeRating {
	tb.Helper()
	rr := &types.RecipeRating{
		ID:        uuid.New(),
		RecipeID:  recipeID,
		Rating:    rating,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(rr).Error; err != nil {
		tb.Fatalf("seed rating: %v", err)
	}
	return rr
}

func SeedOutboxEvent(tb testing.TB, ctx context.Context, tx *gorm.DB, ev *types.OutboxEvent) *types.OutboxEvent {
	tb.Helper()
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Status == "" {
		ev.Status = types.OutboxStatusPending
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if ev.UpdatedAt.IsZero() {
		ev.UpdatedAt = ev.CreatedAt
	}
	if err := tx.WithContext(ctx).Create(ev).Error; err != nil {
		tb.Fatalf("seed outbox event: %v", err)
	}
	return ev
}
