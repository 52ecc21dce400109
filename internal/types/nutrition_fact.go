package types

import (
	"time"

	"github.com/google/uuid"
)

// NutritionFact rows are generic per-entity facts keyed by
// (entity_type, entity_id); this worker only reads entity_type = 'recipe'.
type NutritionFact struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EntityType        string     `gorm:"column:entity_type;not null;index:idx_nutrition_entity,priority:1" json:"entity_type"`
	EntityID          uuid.UUID  `gorm:"type:uuid;column:entity_id;not null;index:idx_nutrition_entity,priority:2" json:"entity_id"`
	NutrientID        uuid.UUID  `gorm:"type:uuid;column:nutrient_id;not null" json:"nutrient_id"`
	Amount            float64    `gorm:"column:amount;not null" json:"amount"`
	Unit              string     `gorm:"column:unit;not null" json:"unit"`
	PerAmount         *float64   `gorm:"column:per_amount" json:"per_amount,omitempty"`
	PerAmountGrams    *float64   `gorm:"column:per_amount_grams" json:"per_amount_grams,omitempty"`
	PercentDailyValue *float64   `gorm:"column:percent_daily_value" json:"percent_daily_value,omitempty"`
	DataSource        *string    `gorm:"column:data_source" json:"data_source,omitempty"`
	ConfidenceScore   *float64   `gorm:"column:confidence_score" json:"confidence_score,omitempty"`
	MeasurementDate   *time.Time `gorm:"column:measurement_date" json:"measurement_date,omitempty"`
}

func (NutritionFact) TableName() string { return "nutrition_facts" }
