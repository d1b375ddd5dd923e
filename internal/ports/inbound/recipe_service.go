// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/tablewise/server/internal/domain/recipe"
)

// RecipeService defines the use cases for the recipe store
// This is the primary port that HTTP handlers and other driving adapters will use
type RecipeService interface {
	// Commands - operations that modify state
	CreateRecipe(ctx context.Context, cmd CreateRecipeCommand) (*RecipeDTO, error)
	UpdateRecipe(ctx context.Context, cmd UpdateRecipeCommand) (*RecipeDTO, error)
	DeleteRecipe(ctx context.Context, recipeID string) error

	// Queries - operations that read state
	ListRecipes(ctx context.Context) ([]RecipeDTO, error)
	GetRecipe(ctx context.Context, recipeID string) (*RecipeDTO, error)
}

// CreateRecipeCommand contains data for creating a new recipe
type CreateRecipeCommand struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Ingredients []string `json:"ingredients" validate:"required,dive,max=500"`
	Steps       []string `json:"steps" validate:"required,dive,max=500"`
	Image       string   `json:"image,omitempty"`
	SourceURL   string   `json:"sourceUrl,omitempty" validate:"omitempty,url"`
	CookTime    *int     `json:"cookTime,omitempty" validate:"omitempty,min=0,max=1440"`
	Servings    string   `json:"servings,omitempty" validate:"max=20"`
	Tags        []string `json:"tags,omitempty" validate:"omitempty,dive,required,max=50"`
}

// ToDraft converts the command into a domain draft
func (c CreateRecipeCommand) ToDraft() recipe.Draft {
	return recipe.Draft{
		Title:       c.Title,
		Ingredients: c.Ingredients,
		Steps:       c.Steps,
		Image:       c.Image,
		SourceURL:   c.SourceURL,
		CookTime:    c.CookTime,
		Servings:    c.Servings,
		Tags:        c.Tags,
	}
}

// UpdateRecipeCommand contains a partial update; nil fields are left alone
type UpdateRecipeCommand struct {
	RecipeID    string    `json:"-"`
	Title       *string   `json:"title,omitempty" validate:"omitempty,max=200"`
	Ingredients *[]string `json:"ingredients,omitempty" validate:"omitempty,dive,max=500"`
	Steps       *[]string `json:"steps,omitempty" validate:"omitempty,dive,max=500"`
	Image       *string   `json:"image,omitempty"`
	SourceURL   *string   `json:"sourceUrl,omitempty"`
	CookTime    *int      `json:"cookTime,omitempty" validate:"omitempty,min=0,max=1440"`
	Servings    *string   `json:"servings,omitempty" validate:"omitempty,max=20"`
	Tags        *[]string `json:"tags,omitempty" validate:"omitempty,dive,required,max=50"`

	// ClearCookTime is set when the body carries "cookTime": null
	ClearCookTime bool `json:"-"`
}

// clearableFields are the optional fields an explicit JSON null resets
var clearableFields = []string{"image", "sourceUrl", "cookTime", "servings", "tags"}

// UnmarshalJSON decodes a patch body. An explicit null on an optional field
// clears it; a null title, ingredients or steps is ignored.
func (c *UpdateRecipeCommand) UnmarshalJSON(data []byte) error {
	type plain UpdateRecipeCommand
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, name := range clearableFields {
		raw, ok := fields[name]
		if !ok || !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		switch name {
		case "image":
			p.Image = new(string)
		case "sourceUrl":
			p.SourceURL = new(string)
		case "cookTime":
			p.ClearCookTime = true
		case "servings":
			p.Servings = new(string)
		case "tags":
			p.Tags = &[]string{}
		}
	}

	*c = UpdateRecipeCommand(p)
	return nil
}

// ToPatch converts the command into a domain patch
func (c UpdateRecipeCommand) ToPatch() recipe.Patch {
	return recipe.Patch{
		Title:         c.Title,
		Ingredients:   c.Ingredients,
		Steps:         c.Steps,
		Image:         c.Image,
		SourceURL:     c.SourceURL,
		CookTime:      c.CookTime,
		ClearCookTime: c.ClearCookTime,
		Servings:      c.Servings,
		Tags:          c.Tags,
	}
}

// Response DTOs

// RecipeDTO is the data transfer object for recipes
type RecipeDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Ingredients []string  `json:"ingredients"`
	Steps       []string  `json:"steps"`
	Image       string    `json:"image,omitempty"`
	SourceURL   string    `json:"sourceUrl,omitempty"`
	CookTime    *int      `json:"cookTime,omitempty"`
	Servings    string    `json:"servings,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewRecipeDTO builds the DTO of a recipe
func NewRecipeDTO(r *recipe.Recipe) RecipeDTO {
	s := r.Snapshot()
	return RecipeDTO{
		ID:          s.ID,
		Title:       s.Title,
		Ingredients: s.Ingredients,
		Steps:       s.Steps,
		Image:       s.Image,
		SourceURL:   s.SourceURL,
		CookTime:    s.CookTime,
		Servings:    s.Servings,
		Tags:        s.Tags,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// Snapshot converts the DTO back into a domain snapshot
func (d RecipeDTO) Snapshot() recipe.Snapshot {
	return recipe.Snapshot{
		ID:          d.ID,
		Title:       d.Title,
		Ingredients: d.Ingredients,
		Steps:       d.Steps,
		Image:       d.Image,
		SourceURL:   d.SourceURL,
		CookTime:    d.CookTime,
		Servings:    d.Servings,
		Tags:        d.Tags,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
