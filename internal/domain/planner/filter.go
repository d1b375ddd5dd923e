package planner

import (
	"slices"
	"strings"

	"github.com/tablewise/server/internal/domain/usermeta"
)

// Filters narrows the candidate list. A field at its zero value does not
// constrain anything.
type Filters struct {
	MaxMinutes    *int     `json:"maxMinutes"`
	Dietary       []string `json:"dietary"`
	MealType      []string `json:"mealType"`
	CookingMethod []string `json:"cookingMethod"`
	Source        []string `json:"source"`
	ProteinType   []string `json:"proteinType"`
	WithNotes     bool     `json:"withNotes"`
	ModifiedByMe  bool     `json:"modifiedByMe"`
	MyPicks       bool     `json:"myPicks"`
	MinRating     *int     `json:"minRating"`
	Servings      *string  `json:"servings"`
	MustInclude   []string `json:"mustInclude"`
	MustExclude   []string `json:"mustExclude"`
}

// DefaultFilters returns filters with every list present and empty
func DefaultFilters() Filters {
	return Filters{
		Dietary:       []string{},
		MealType:      []string{},
		CookingMethod: []string{},
		Source:        []string{},
		ProteinType:   []string{},
		MustInclude:   []string{},
		MustExclude:   []string{},
	}
}

// Option catalogues offered by the filter rail
var (
	TimeOptions          = []int{20, 30, 40, 60}
	DietaryOptions       = []string{"Vegetarian", "Kid friendly", "Gluten-free"}
	MealTypeOptions      = []string{MealBreakfast, MealLunch, MealDinner, MealLunchBox}
	CookingMethodOptions = []string{ToolOven, ToolAirFryer, ToolStovetop, ToolNoCook}
	SourceOptions        = []string{SourceMine, SourceImported, "Trusted authors", "Personal"}
	ProteinOptions       = []string{ProteinChicken, ProteinBeef, ProteinSeafood, ProteinPlantBased}
	ServingsOptions      = []string{"1-2", "3-4", "5+"}
)

var dietaryTags = map[string]string{
	"Vegetarian":   TagVegetarian,
	"Kid friendly": TagKidFriendly,
	"Gluten-free":  TagGlutenFree,
}

// FilterRecipes keeps the recipes that pass every active filter group,
// preserving input order. meta may be nil.
func FilterRecipes(recipes []PlannerRecipe, f Filters, meta map[string]usermeta.Meta) []PlannerRecipe {
	include := normalizeTerms(f.MustInclude)
	exclude := normalizeTerms(f.MustExclude)

	out := make([]PlannerRecipe, 0, len(recipes))
	for _, r := range recipes {
		if matches(r, f, meta[r.ID], include, exclude) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r PlannerRecipe, f Filters, m usermeta.Meta, include, exclude []string) bool {
	if f.MaxMinutes != nil && r.Minutes > *f.MaxMinutes {
		return false
	}
	for _, diet := range f.Dietary {
		tag, known := dietaryTags[diet]
		if known && !slices.Contains(r.Tags, tag) {
			return false
		}
	}
	if len(f.MealType) > 0 && !slices.Contains(f.MealType, r.MealType) {
		return false
	}
	if len(f.CookingMethod) > 0 && !intersects(f.CookingMethod, r.Tools) {
		return false
	}
	if len(f.Source) > 0 && !slices.Contains(f.Source, r.SourceType) {
		return false
	}
	if len(f.ProteinType) > 0 && !slices.Contains(f.ProteinType, r.ProteinType) {
		return false
	}
	if f.WithNotes && !r.HasNotes {
		return false
	}
	if f.ModifiedByMe && !r.ModifiedByMe {
		return false
	}
	if f.MyPicks && !m.IsMyPick {
		return false
	}
	if f.MinRating != nil && !m.HasRatingAtLeast(*f.MinRating) {
		return false
	}
	if f.Servings != nil && *f.Servings != "" {
		if !strings.Contains(r.ServingsRange, strings.ReplaceAll(*f.Servings, "+", "")) {
			return false
		}
	}

	if len(include) > 0 || len(exclude) > 0 {
		ingredients := normalizeTerms(r.Ingredients)
		for _, term := range include {
			if !anyLooseMatch(ingredients, term) {
				return false
			}
		}
		for _, term := range exclude {
			if anyLooseMatch(ingredients, term) {
				return false
			}
		}
	}
	return true
}

// LooseMatch reports whether either string contains the other. Both are
// expected to be normalized already; "egg" matches "eggplant".
func LooseMatch(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func anyLooseMatch(ingredients []string, term string) bool {
	for _, ing := range ingredients {
		if LooseMatch(ing, term) {
			return true
		}
	}
	return false
}

// NormalizeTerm trims and lowercases an ingredient term
func NormalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// AddTerm appends a normalized term unless it is blank or already present
func AddTerm(list []string, term string) []string {
	t := NormalizeTerm(term)
	if t == "" || slices.Contains(list, t) {
		return list
	}
	return append(list, t)
}

// RemoveTerm drops a term from the list
func RemoveTerm(list []string, term string) []string {
	t := NormalizeTerm(term)
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != t {
			out = append(out, v)
		}
	}
	return out
}

// ActiveFilterCount counts every active constraint; list groups count each entry
func ActiveFilterCount(f Filters) int {
	n := len(f.Dietary) + len(f.MealType) + len(f.CookingMethod) + len(f.Source) +
		len(f.ProteinType) + len(f.MustInclude) + len(f.MustExclude)
	if f.MaxMinutes != nil {
		n++
	}
	if f.WithNotes {
		n++
	}
	if f.ModifiedByMe {
		n++
	}
	if f.MyPicks {
		n++
	}
	if f.MinRating != nil {
		n++
	}
	if f.Servings != nil && *f.Servings != "" {
		n++
	}
	return n
}

// Normalize replaces nil lists with empty ones and normalizes ingredient terms
func (f Filters) Normalize() Filters {
	f.Dietary = nonNil(f.Dietary)
	f.MealType = nonNil(f.MealType)
	f.CookingMethod = nonNil(f.CookingMethod)
	f.Source = nonNil(f.Source)
	f.ProteinType = nonNil(f.ProteinType)

	include := []string{}
	for _, t := range f.MustInclude {
		include = AddTerm(include, t)
	}
	exclude := []string{}
	for _, t := range f.MustExclude {
		exclude = AddTerm(exclude, t)
	}
	f.MustInclude = include
	f.MustExclude = exclude

	if f.Servings != nil && *f.Servings == "" {
		f.Servings = nil
	}
	return f
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if n := NormalizeTerm(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
