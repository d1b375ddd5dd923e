// Package planner holds the weekly meal planner: recipe classification,
// the filter engine, the meal-plan grid and the per-device weekly state.
package planner

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tablewise/server/internal/domain/recipe"
)

// Meal type labels as shown to users. LunchBox is a classification only; the
// grid has no Lunch box row.
const (
	MealBreakfast = "Breakfast"
	MealLunchBox  = "Lunch box"
	MealLunch     = "Lunch"
	MealDinner    = "Dinner"
)

// Tools
const (
	ToolAirFryer = "Air fryer"
	ToolOven     = "Oven"
	ToolStovetop = "Stovetop"
	ToolNoCook   = "No-cook"
)

// Protein types
const (
	ProteinChicken    = "Chicken"
	ProteinBeef       = "Beef"
	ProteinSeafood    = "Seafood"
	ProteinPlantBased = "Plant-based"
)

// Source types
const (
	SourceMine     = "My recipes"
	SourceImported = "Imported"
)

// Normalized dietary tags
const (
	TagKidFriendly = "kidFriendly"
	TagVegetarian  = "vegetarian"
	TagGlutenFree  = "glutenFree"
)

// Rule maps a pattern to a category. Rule tables are evaluated in order.
type Rule struct {
	Pattern  *regexp.Regexp
	Category string
}

// MealTypeRule matches a lowercased tag by substring or the title by pattern
type MealTypeRule struct {
	TagSubstrings []string
	Title         *regexp.Regexp
	Category      string
}

// MealTypeRules are checked in order; the first rule matching either a tag
// or the title wins.
var MealTypeRules = []MealTypeRule{
	{[]string{"breakfast"}, regexp.MustCompile(`(?i)\bbreakfast|omelet|omelette|oat|toast\b`), MealBreakfast},
	{[]string{"lunch box", "lunchbox"}, regexp.MustCompile(`(?i)\blunch box|bento\b`), MealLunchBox},
	{[]string{"lunch"}, regexp.MustCompile(`(?i)\blunch|sandwich|wrap|salad\b`), MealLunch},
}

// ToolRules classify the joined step text; every matching rule contributes.
var ToolRules = []Rule{
	{regexp.MustCompile(`(?i)\bair ?fry|airfryer\b`), ToolAirFryer},
	{regexp.MustCompile(`(?i)\boven|bake|roast\b`), ToolOven},
	{regexp.MustCompile(`(?i)\bstove|stovetop|boil|simmer|fry|saute|sautee|skillet|pan\b`), ToolStovetop},
	{regexp.MustCompile(`(?i)\bno cook|no-cook|assemble|chill|mix and serve\b`), ToolNoCook},
}

// ProteinRules classify the joined ingredient text; first match wins.
var ProteinRules = []Rule{
	{regexp.MustCompile(`(?i)\bchicken|turkey\b`), ProteinChicken},
	{regexp.MustCompile(`(?i)\bbeef|pork|lamb\b`), ProteinBeef},
	{regexp.MustCompile(`(?i)\bfish|salmon|shrimp|tuna|cod|tilapia|trout|seafood|crab|prawn\b`), ProteinSeafood},
}

var leadingInt = regexp.MustCompile(`^\d+`)

// PlannerRecipe is a recipe enriched with inferred, never-persisted fields
type PlannerRecipe struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Ingredients   []string  `json:"ingredients"`
	SourceURL     string    `json:"sourceUrl,omitempty"`
	Image         string    `json:"image,omitempty"`
	Minutes       int       `json:"minutes"`
	MealType      string    `json:"mealType"`
	Tags          []string  `json:"tags"`
	Tools         []string  `json:"tools"`
	SourceType    string    `json:"sourceType"`
	ProteinType   string    `json:"proteinType"`
	ServingsRange string    `json:"servingsRange"`
	HasNotes      bool      `json:"hasNotes"`
	ModifiedByMe  bool      `json:"modifiedByMe"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Hints carries device-local facts that feed classification
type Hints struct {
	HasNotes bool
}

// ToPlannerRecipe derives the planner view of a stored recipe
func ToPlannerRecipe(s recipe.Snapshot, h Hints) PlannerRecipe {
	ingredients := s.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}
	return PlannerRecipe{
		ID:            s.ID,
		Title:         s.Title,
		Ingredients:   ingredients,
		SourceURL:     s.SourceURL,
		Image:         s.Image,
		Minutes:       EstimateMinutes(s.CookTime, len(s.Steps)),
		MealType:      ClassifyMealType(s.Title, s.Tags),
		Tags:          NormalizeTags(s.Tags),
		Tools:         ClassifyTools(s.Steps),
		SourceType:    ClassifySource(s.SourceURL),
		ProteinType:   ClassifyProtein(s.Ingredients),
		ServingsRange: ServingsRange(s.Servings),
		HasNotes:      h.HasNotes,
		ModifiedByMe:  s.WasModified(),
		CreatedAt:     s.CreatedAt,
	}
}

// NormalizeTag maps spelling variants of the dietary tags onto their
// canonical names and returns any other tag trimmed.
func NormalizeTag(tag string) string {
	squashed := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '_', '-':
			return -1
		}
		return r
	}, strings.ToLower(tag))

	switch squashed {
	case "kidfriendly":
		return TagKidFriendly
	case "vegetarian":
		return TagVegetarian
	case "glutenfree":
		return TagGlutenFree
	}
	return strings.TrimSpace(tag)
}

func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, NormalizeTag(t))
	}
	return out
}

// ClassifyMealType returns the first matching meal type, falling back to Dinner
func ClassifyMealType(title string, tags []string) string {
	lowered := make([]string, len(tags))
	for i, t := range tags {
		lowered[i] = strings.ToLower(t)
	}
	for _, rule := range MealTypeRules {
		if anyContains(lowered, rule.TagSubstrings) || rule.Title.MatchString(title) {
			return rule.Category
		}
	}
	return MealDinner
}

func anyContains(values, subs []string) bool {
	for _, v := range values {
		for _, sub := range subs {
			if strings.Contains(v, sub) {
				return true
			}
		}
	}
	return false
}

// ClassifyTools returns every tool whose rule matches the steps, in table order
func ClassifyTools(steps []string) []string {
	text := strings.Join(steps, " ")
	var tools []string
	for _, rule := range ToolRules {
		if rule.Pattern.MatchString(text) {
			tools = append(tools, rule.Category)
		}
	}
	if len(tools) == 0 {
		return []string{ToolNoCook}
	}
	return tools
}

func ClassifyProtein(ingredients []string) string {
	if c, ok := firstMatch(ProteinRules, strings.Join(ingredients, " ")); ok {
		return c
	}
	return ProteinPlantBased
}

func ClassifySource(sourceURL string) string {
	if strings.TrimSpace(sourceURL) != "" {
		return SourceImported
	}
	return SourceMine
}

// ServingsRange buckets a free-form servings descriptor
func ServingsRange(servings string) string {
	s := strings.TrimSpace(servings)
	if s == "" {
		return "1-2"
	}
	if strings.ContainsAny(s, "-+") {
		return s
	}
	digits := leadingInt.FindString(s)
	if digits == "" {
		return "1-2"
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return "1-2"
	}
	switch {
	case n <= 2:
		return "1-2"
	case n <= 4:
		return "3-4"
	default:
		return "5+"
	}
}

// EstimateMinutes uses the recorded cook time or ten minutes per step
func EstimateMinutes(cookTime *int, steps int) int {
	if cookTime != nil && *cookTime > 0 {
		return *cookTime
	}
	if m := steps * 10; m > 10 {
		return m
	}
	return 10
}

func firstMatch(rules []Rule, text string) (string, bool) {
	for _, rule := range rules {
		if rule.Pattern.MatchString(text) {
			return rule.Category, true
		}
	}
	return "", false
}
