// Package gorm provides mapping between domain entities and GORM models
package gorm

import (
	"github.com/tablewise/server/internal/domain/recipe"
)

// RecipeToModel converts a domain recipe to a GORM model
func RecipeToModel(r *recipe.Recipe) *RecipeModel {
	s := r.Snapshot()
	return &RecipeModel{
		ID:          s.ID,
		Title:       s.Title,
		Ingredients: StringSlice(s.Ingredients),
		Steps:       StringSlice(s.Steps),
		Image:       s.Image,
		SourceURL:   s.SourceURL,
		CookTime:    s.CookTime,
		Servings:    s.Servings,
		Tags:        StringSlice(s.Tags),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// ModelToRecipe converts a GORM model back to a domain recipe
func ModelToRecipe(m *RecipeModel) *recipe.Recipe {
	return recipe.FromSnapshot(recipe.Snapshot{
		ID:          m.ID,
		Title:       m.Title,
		Ingredients: []string(m.Ingredients),
		Steps:       []string(m.Steps),
		Image:       m.Image,
		SourceURL:   m.SourceURL,
		CookTime:    m.CookTime,
		Servings:    m.Servings,
		Tags:        []string(m.Tags),
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	})
}
