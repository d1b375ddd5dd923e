// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/tablewise/server/internal/domain/recipe"
	"github.com/tablewise/server/internal/ports/inbound"
)

// RecipeFactory provides methods to create test recipes
type RecipeFactory struct {
	faker *gofakeit.Faker
}

// NewRecipeFactory creates a new recipe factory with seeded faker
func NewRecipeFactory(seed int64) *RecipeFactory {
	return &RecipeFactory{
		faker: gofakeit.New(seed),
	}
}

// Draft returns a valid, randomly populated draft
func (f *RecipeFactory) Draft() recipe.Draft {
	cookTime := f.faker.Number(5, 120)
	return recipe.Draft{
		Title:       f.faker.Dessert(),
		Ingredients: f.ingredients(f.faker.Number(2, 6)),
		Steps:       f.steps(f.faker.Number(1, 5)),
		CookTime:    &cookTime,
		Servings:    fmt.Sprintf("%d", f.faker.Number(1, 8)),
	}
}

// Recipe returns a persisted-looking recipe built from Draft
func (f *RecipeFactory) Recipe() *recipe.Recipe {
	r, err := recipe.NewRecipe(f.Draft())
	if err != nil {
		panic(fmt.Sprintf("factory produced invalid recipe: %v", err))
	}
	r.Events()
	return r
}

// Recipes returns n recipes
func (f *RecipeFactory) Recipes(n int) []*recipe.Recipe {
	out := make([]*recipe.Recipe, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, f.Recipe())
	}
	return out
}

// CreateCommand returns a valid create command
func (f *RecipeFactory) CreateCommand() inbound.CreateRecipeCommand {
	d := f.Draft()
	return inbound.CreateRecipeCommand{
		Title:       d.Title,
		Ingredients: d.Ingredients,
		Steps:       d.Steps,
		CookTime:    d.CookTime,
		Servings:    d.Servings,
	}
}

func (f *RecipeFactory) ingredients(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("%dg %s", f.faker.Number(10, 500), f.faker.Vegetable()))
	}
	return out
}

func (f *RecipeFactory) steps(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, f.faker.Sentence(6))
	}
	return out
}

// RecipeBuilder provides a fluent interface for building test recipes
type RecipeBuilder struct {
	id          string
	title       string
	ingredients []string
	steps       []string
	image       string
	sourceURL   string
	cookTime    *int
	servings    string
	tags        []string
	createdAt   time.Time
	updatedAt   time.Time
}

// NewRecipeBuilder creates a new recipe builder with default values
func NewRecipeBuilder() *RecipeBuilder {
	faker := gofakeit.New(time.Now().UnixNano())
	now := time.Now().UTC()

	return &RecipeBuilder{
		id:          faker.UUID(),
		title:       faker.Dessert(),
		ingredients: []string{"200g spaghetti", "50g parmesan"},
		steps:       []string{"Boil pasta.", "Add cheese."},
		tags:        []string{},
		createdAt:   now,
		updatedAt:   now,
	}
}

// WithID sets the recipe id
func (rb *RecipeBuilder) WithID(id string) *RecipeBuilder {
	rb.id = id
	return rb
}

// WithTitle sets the recipe title
func (rb *RecipeBuilder) WithTitle(title string) *RecipeBuilder {
	rb.title = title
	return rb
}

// WithIngredients sets the recipe ingredients
func (rb *RecipeBuilder) WithIngredients(ingredients ...string) *RecipeBuilder {
	rb.ingredients = ingredients
	return rb
}

// WithSteps sets the recipe steps
func (rb *RecipeBuilder) WithSteps(steps ...string) *RecipeBuilder {
	rb.steps = steps
	return rb
}

// WithSourceURL marks the recipe as imported
func (rb *RecipeBuilder) WithSourceURL(url string) *RecipeBuilder {
	rb.sourceURL = url
	return rb
}

// WithCookTime sets the cook time in minutes
func (rb *RecipeBuilder) WithCookTime(minutes int) *RecipeBuilder {
	rb.cookTime = &minutes
	return rb
}

// WithServings sets the servings descriptor
func (rb *RecipeBuilder) WithServings(servings string) *RecipeBuilder {
	rb.servings = servings
	return rb
}

// WithTags sets the recipe tags
func (rb *RecipeBuilder) WithTags(tags ...string) *RecipeBuilder {
	rb.tags = tags
	return rb
}

// CreatedAt sets both timestamps
func (rb *RecipeBuilder) CreatedAt(t time.Time) *RecipeBuilder {
	rb.createdAt = t
	rb.updatedAt = t
	return rb
}

// Modified pushes updatedAt past createdAt
func (rb *RecipeBuilder) Modified() *RecipeBuilder {
	rb.updatedAt = rb.createdAt.Add(time.Hour)
	return rb
}

// Snapshot returns the builder state as a snapshot
func (rb *RecipeBuilder) Snapshot() recipe.Snapshot {
	return recipe.Snapshot{
		ID:          rb.id,
		Title:       rb.title,
		Ingredients: rb.ingredients,
		Steps:       rb.steps,
		Image:       rb.image,
		SourceURL:   rb.sourceURL,
		CookTime:    rb.cookTime,
		Servings:    rb.servings,
		Tags:        rb.tags,
		CreatedAt:   rb.createdAt,
		UpdatedAt:   rb.updatedAt,
	}
}

// Build constructs the recipe
func (rb *RecipeBuilder) Build() *recipe.Recipe {
	return recipe.FromSnapshot(rb.Snapshot())
}
