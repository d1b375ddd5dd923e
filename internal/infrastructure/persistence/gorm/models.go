// Package gorm provides GORM model definitions for the application
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecipeModel represents the GORM model for recipes
type RecipeModel struct {
	ID          string      `gorm:"type:varchar(36);primaryKey"`
	Title       string      `gorm:"type:varchar(200);not null"`
	Ingredients StringSlice `gorm:"type:text;not null"`
	Steps       StringSlice `gorm:"type:text;not null"`
	Image       string      `gorm:"type:text"`
	SourceURL   string      `gorm:"column:source_url;type:text"`
	CookTime    *int        `gorm:"column:cook_time_minutes"`
	Servings    string      `gorm:"type:varchar(20)"`
	Tags        StringSlice `gorm:"type:text"`
	CreatedAt   time.Time   `gorm:"not null;index:idx_recipes_created_at,sort:desc"`
	UpdatedAt   time.Time   `gorm:"not null;autoUpdateTime:false"`
}

// StateEntryModel is one device state document
type StateEntryModel struct {
	Key       string    `gorm:"column:state_key;type:varchar(255);primaryKey"`
	Value     []byte    `gorm:"column:state_value;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// StringSlice stores a list of strings as a JSON array
type StringSlice []string

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
	if len(raw) == 0 {
		*s = StringSlice{}
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(s))
}

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// BeforeCreate hook for RecipeModel
func (r *RecipeModel) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// TableName methods for custom table names
func (RecipeModel) TableName() string {
	return "recipes"
}

func (StateEntryModel) TableName() string {
	return "state_entries"
}

// AllModels lists every model managed by AutoMigrate
func AllModels() []interface{} {
	return []interface{}{&RecipeModel{}, &StateEntryModel{}}
}
