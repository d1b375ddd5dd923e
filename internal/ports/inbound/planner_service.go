package inbound

import (
	"context"

	"github.com/tablewise/server/internal/domain/grocery"
	"github.com/tablewise/server/internal/domain/planner"
	"github.com/tablewise/server/internal/domain/usermeta"
)

// PlannerService defines the weekly planner use cases. Every call is scoped
// to the device that owns the state.
type PlannerService interface {
	GetState(ctx context.Context, deviceID string) (*PlannerStateDTO, error)
	UpdateFilters(ctx context.Context, deviceID string, filters planner.Filters) (*PlannerStateDTO, error)
	ClearFilters(ctx context.Context, deviceID string) (*PlannerStateDTO, error)
	UpdateLayout(ctx context.Context, deviceID string, cmd UpdateLayoutCommand) (*PlannerStateDTO, error)
	ToggleSelection(ctx context.Context, deviceID, recipeID string) (*PlannerStateDTO, error)
	Candidates(ctx context.Context, deviceID string) (*CandidatesDTO, error)

	// Grid operations report Changed=false when the operation was a no-op
	Place(ctx context.Context, deviceID string, cmd PlaceCommand) (*GridResultDTO, error)
	Extend(ctx context.Context, deviceID string, cmd GridCommand) (*GridResultDTO, error)
	Shrink(ctx context.Context, deviceID string, cmd GridCommand) (*GridResultDTO, error)
	Remove(ctx context.Context, deviceID string, cmd GridCommand) (*GridResultDTO, error)

	GroceryList(ctx context.Context, deviceID string) (*grocery.List, error)
	ToggleGroceryItem(ctx context.Context, deviceID, key string) (*grocery.List, error)
}

// UserMetaService manages the device-local facts about single recipes
type UserMetaService interface {
	GetMeta(ctx context.Context, deviceID, recipeID string) (*usermeta.Meta, error)
	ToggleMyPick(ctx context.Context, deviceID, recipeID string) (*usermeta.Meta, error)
	SetRating(ctx context.Context, deviceID, recipeID string, rating int) (*usermeta.Meta, error)
	ClearRating(ctx context.Context, deviceID, recipeID string) (*usermeta.Meta, error)

	GetViewPreferences(ctx context.Context, deviceID, recipeID string) (*usermeta.ViewPreferences, error)
	SaveViewPreferences(ctx context.Context, deviceID, recipeID string, prefs usermeta.ViewPreferences) (*usermeta.ViewPreferences, error)
}

// UpdateLayoutCommand changes the filter rail layout; nil fields are left alone
type UpdateLayoutCommand struct {
	ExpandedSections *[]string `json:"expandedSections,omitempty"`
	ShowMoreFilters  *bool     `json:"showMoreFilters,omitempty"`
	ToggleSection    string    `json:"toggleSection,omitempty"`
}

// PlaceCommand drops a recipe on a grid cell
type PlaceCommand struct {
	RecipeID string `json:"recipeId" validate:"required"`
	MealType string `json:"mealType" validate:"required"`
	Day      int    `json:"day"`
}

// GridCommand addresses the assignment that starts on a cell
type GridCommand struct {
	MealType string
	Day      int
}

// PlannerStateDTO is the weekly state plus derived flags
type PlannerStateDTO struct {
	planner.WeeklyState
	ActiveFilterCount int  `json:"activeFilterCount"`
	CanGenerate       bool `json:"canGenerate"`
}

// CandidatesDTO is the filtered, classified recipe list
type CandidatesDTO struct {
	Recipes           []planner.PlannerRecipe `json:"recipes"`
	Total             int                     `json:"total"`
	ActiveFilterCount int                     `json:"activeFilterCount"`
	SelectedIDs       []string                `json:"selectedIds"`
}

// GridResultDTO reports the plan after a grid operation
type GridResultDTO struct {
	Changed     bool                 `json:"changed"`
	Assignments []planner.Assignment `json:"planAssignments"`
}
