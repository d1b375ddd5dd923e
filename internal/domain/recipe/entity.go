// Package recipe contains the core domain logic for the recipe store.
// A Recipe is the only server-owned record; everything the planner derives
// from it is computed on read.
package recipe

import (
	"net/url"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tablewise/server/internal/domain/shared"
)

// Recipe is the aggregate root of the recipe store.
type Recipe struct {
	shared.AggregateRoot

	id          string
	title       string
	ingredients []string
	steps       []string

	image     string
	sourceURL string
	cookTime  *int
	servings  string
	tags      []string

	createdAt time.Time
	updatedAt time.Time
	deleted   bool
}

// Draft holds the caller-supplied fields of a new recipe.
type Draft struct {
	Title       string
	Ingredients []string
	Steps       []string
	Image       string
	SourceURL   string
	CookTime    *int
	Servings    string
	Tags        []string
}

// Patch describes a partial update; nil fields are left untouched.
// ClearCookTime removes a known cook time.
type Patch struct {
	Title         *string
	Ingredients   *[]string
	Steps         *[]string
	Image         *string
	SourceURL     *string
	CookTime      *int
	ClearCookTime bool
	Servings      *string
	Tags          *[]string
}

// IsEmpty reports whether the patch touches no field
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Ingredients == nil && p.Steps == nil && p.Image == nil &&
		p.SourceURL == nil && p.CookTime == nil && !p.ClearCookTime && p.Servings == nil && p.Tags == nil
}

// Snapshot is the flat, persistence-friendly view of a recipe.
type Snapshot struct {
	ID          string
	Title       string
	Ingredients []string
	Steps       []string
	Image       string
	SourceURL   string
	CookTime    *int
	Servings    string
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewRecipe validates a draft and creates a recipe with a fresh identity.
func NewRecipe(d Draft) (*Recipe, error) {
	d = d.normalized()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	r := &Recipe{
		id:          uuid.NewString(),
		title:       d.Title,
		ingredients: d.Ingredients,
		steps:       d.Steps,
		image:       d.Image,
		sourceURL:   d.SourceURL,
		cookTime:    d.CookTime,
		servings:    d.Servings,
		tags:        d.Tags,
		createdAt:   now,
		updatedAt:   now,
	}

	r.AddEvent(RecipeCreatedEvent{
		RecipeID:  r.id,
		Title:     r.title,
		CreatedAt: now,
	})

	return r, nil
}

// FromSnapshot rebuilds a recipe loaded from storage. No events are raised.
func FromSnapshot(s Snapshot) *Recipe {
	return &Recipe{
		id:          s.ID,
		title:       s.Title,
		ingredients: nonNil(s.Ingredients),
		steps:       nonNil(s.Steps),
		image:       s.Image,
		sourceURL:   s.SourceURL,
		cookTime:    copyInt(s.CookTime),
		servings:    s.Servings,
		tags:        s.Tags,
		createdAt:   s.CreatedAt,
		updatedAt:   s.UpdatedAt,
	}
}

// ID returns the recipe's opaque identifier
func (r *Recipe) ID() string { return r.id }

// Title returns the recipe's title
func (r *Recipe) Title() string { return r.title }

// Ingredients returns the ordered ingredient lines
func (r *Recipe) Ingredients() []string { return clone(r.ingredients) }

// Steps returns the ordered step lines
func (r *Recipe) Steps() []string { return clone(r.steps) }

// CookTime returns the cook time in minutes, if known
func (r *Recipe) CookTime() *int { return copyInt(r.cookTime) }

// Servings returns the servings descriptor, e.g. "3-4"
func (r *Recipe) Servings() string { return r.servings }

// Tags returns the raw tag set
func (r *Recipe) Tags() []string { return clone(r.tags) }

// CreatedAt returns the creation timestamp
func (r *Recipe) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns the last update timestamp
func (r *Recipe) UpdatedAt() time.Time { return r.updatedAt }

// Snapshot returns a copy of the recipe's state
func (r *Recipe) Snapshot() Snapshot {
	return Snapshot{
		ID:          r.id,
		Title:       r.title,
		Ingredients: r.Ingredients(),
		Steps:       r.Steps(),
		Image:       r.image,
		SourceURL:   r.sourceURL,
		CookTime:    copyInt(r.cookTime),
		Servings:    r.servings,
		Tags:        r.Tags(),
		CreatedAt:   r.createdAt,
		UpdatedAt:   r.updatedAt,
	}
}

// Apply merges a patch into the recipe and reports whether anything changed.
// The merged result must pass the same validation as a new recipe; on failure
// the recipe is left unchanged. A patch that leaves every field as it was
// raises no event and keeps updatedAt.
func (r *Recipe) Apply(p Patch) (bool, error) {
	if p.IsEmpty() {
		return false, nil
	}

	current := r.draft()
	merged := current
	if p.Title != nil {
		merged.Title = *p.Title
	}
	if p.Ingredients != nil {
		merged.Ingredients = *p.Ingredients
	}
	if p.Steps != nil {
		merged.Steps = *p.Steps
	}
	if p.Image != nil {
		merged.Image = *p.Image
	}
	if p.SourceURL != nil {
		merged.SourceURL = *p.SourceURL
	}
	switch {
	case p.CookTime != nil:
		merged.CookTime = p.CookTime
	case p.ClearCookTime:
		merged.CookTime = nil
	}
	if p.Servings != nil {
		merged.Servings = *p.Servings
	}
	if p.Tags != nil {
		merged.Tags = *p.Tags
	}

	merged = merged.normalized()
	if err := merged.Validate(); err != nil {
		return false, err
	}

	changed := current.diff(merged)
	if len(changed) == 0 {
		return false, nil
	}

	r.title = merged.Title
	r.ingredients = merged.Ingredients
	r.steps = merged.Steps
	r.image = merged.Image
	r.sourceURL = merged.SourceURL
	r.cookTime = copyInt(merged.CookTime)
	r.servings = merged.Servings
	r.tags = merged.Tags

	now := time.Now().UTC()
	if !now.After(r.updatedAt) {
		now = r.updatedAt.Add(time.Millisecond)
	}
	r.updatedAt = now

	r.AddEvent(RecipeUpdatedEvent{
		RecipeID:  r.id,
		Fields:    changed,
		UpdatedAt: now,
	})
	return true, nil
}

func (r *Recipe) draft() Draft {
	return Draft{
		Title:       r.title,
		Ingredients: r.Ingredients(),
		Steps:       r.Steps(),
		Image:       r.image,
		SourceURL:   r.sourceURL,
		CookTime:    copyInt(r.cookTime),
		Servings:    r.servings,
		Tags:        r.Tags(),
	}
}

// diff lists the JSON names of the fields that differ between d and other
func (d Draft) diff(other Draft) []string {
	var changed []string
	if d.Title != other.Title {
		changed = append(changed, "title")
	}
	if !slices.Equal(d.Ingredients, other.Ingredients) {
		changed = append(changed, "ingredients")
	}
	if !slices.Equal(d.Steps, other.Steps) {
		changed = append(changed, "steps")
	}
	if d.Image != other.Image {
		changed = append(changed, "image")
	}
	if d.SourceURL != other.SourceURL {
		changed = append(changed, "sourceUrl")
	}
	if !sameInt(d.CookTime, other.CookTime) {
		changed = append(changed, "cookTime")
	}
	if d.Servings != other.Servings {
		changed = append(changed, "servings")
	}
	if !slices.Equal(d.Tags, other.Tags) {
		changed = append(changed, "tags")
	}
	return changed
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Delete marks the recipe as removed and raises the deletion event
func (r *Recipe) Delete() error {
	if r.deleted {
		return ErrRecipeAlreadyGone
	}
	r.deleted = true
	r.AddEvent(RecipeDeletedEvent{
		RecipeID:  r.id,
		DeletedAt: time.Now().UTC(),
	})
	return nil
}

// Validate checks every field and reports all failures at once
func (d Draft) Validate() error {
	var errs ValidationError

	if d.Title == "" {
		errs = append(errs, FieldError{Field: "title", Err: ErrTitleRequired})
	} else if utf8.RuneCountInString(d.Title) > MaxTitleLength {
		errs = append(errs, FieldError{Field: "title", Err: ErrTitleTooLong})
	}

	if tooLong(d.Ingredients) {
		errs = append(errs, FieldError{Field: "ingredients", Err: ErrLineTooLong})
	}
	if tooLong(d.Steps) {
		errs = append(errs, FieldError{Field: "steps", Err: ErrLineTooLong})
	}

	if d.CookTime != nil && (*d.CookTime < 0 || *d.CookTime > MaxCookTimeMinutes) {
		errs = append(errs, FieldError{Field: "cookTime", Err: ErrInvalidCookTime})
	}
	if utf8.RuneCountInString(d.Servings) > MaxServingsLength {
		errs = append(errs, FieldError{Field: "servings", Err: ErrServingsTooLong})
	}
	for _, tag := range d.Tags {
		if strings.TrimSpace(tag) == "" || utf8.RuneCountInString(tag) > MaxTagLength {
			errs = append(errs, FieldError{Field: "tags", Err: ErrInvalidTag})
			break
		}
	}
	if d.SourceURL != "" && !isHTTPURL(d.SourceURL) {
		errs = append(errs, FieldError{Field: "sourceUrl", Err: ErrInvalidSourceURL})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (d Draft) normalized() Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Ingredients = nonNil(clone(d.Ingredients))
	d.Steps = nonNil(clone(d.Steps))
	d.Image = strings.TrimSpace(d.Image)
	d.SourceURL = strings.TrimSpace(d.SourceURL)
	d.Servings = strings.TrimSpace(d.Servings)
	d.CookTime = copyInt(d.CookTime)
	d.Tags = clone(d.Tags)
	return d
}

func tooLong(lines []string) bool {
	for _, line := range lines {
		if utf8.RuneCountInString(line) > MaxLineLength {
			return true
		}
	}
	return false
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func clone(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
