package recipe

import "time"

// Event names published on the message bus
const (
	EventRecipeCreated = "recipe.created"
	EventRecipeUpdated = "recipe.updated"
	EventRecipeDeleted = "recipe.deleted"
)

// RecipeCreatedEvent is raised when a new recipe is created
type RecipeCreatedEvent struct {
	RecipeID  string    `json:"recipeId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e RecipeCreatedEvent) EventName() string {
	return EventRecipeCreated
}

func (e RecipeCreatedEvent) OccurredAt() time.Time {
	return e.CreatedAt
}

// RecipeUpdatedEvent is raised when a patch is applied
type RecipeUpdatedEvent struct {
	RecipeID  string    `json:"recipeId"`
	Fields    []string  `json:"fields"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (e RecipeUpdatedEvent) EventName() string {
	return EventRecipeUpdated
}

func (e RecipeUpdatedEvent) OccurredAt() time.Time {
	return e.UpdatedAt
}

// RecipeDeletedEvent is raised when a recipe is removed from the store.
// Device-local state referencing the recipe is cleaned up on receipt.
type RecipeDeletedEvent struct {
	RecipeID  string    `json:"recipeId"`
	DeletedAt time.Time `json:"deletedAt"`
}

func (e RecipeDeletedEvent) EventName() string {
	return EventRecipeDeleted
}

func (e RecipeDeletedEvent) OccurredAt() time.Time {
	return e.DeletedAt
}
