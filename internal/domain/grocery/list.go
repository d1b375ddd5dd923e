// Package grocery derives a categorized shopping list from the recipes on a plan.
package grocery

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CheckedKey names the set of checked grocery items in the device store
const CheckedKey = "groceryCheckedItems"

// Category names in display order
const (
	Produce       = "Produce"
	MeatPoultry   = "Meat & Poultry"
	Seafood       = "Seafood"
	DairyEggs     = "Dairy & Eggs"
	GrainsPasta   = "Grains & Pasta"
	CannedJarred  = "Canned & Jarred"
	SpicesSeasons = "Spices & Seasonings"
	Other         = "Other"
)

// CategoryKeywords is the lookup table used by Categorize. An ingredient
// belongs to the first category with a keyword that contains it or is
// contained by it.
var CategoryKeywords = []struct {
	Name     string
	Keywords []string
}{
	{Produce, []string{"broccoli", "bell pepper", "ginger", "lemon", "dill", "cucumber", "tomato", "olives", "lettuce", "spinach", "carrot", "celery", "onion", "garlic", "mushrooms", "rosemary", "thyme", "parsley", "potatoes", "cabbage slaw", "lime", "avocado", "romaine lettuce", "berries"}},
	{MeatPoultry, []string{"chicken", "chicken breast", "grilled chicken", "whole chicken", "ground beef", "beef chuck", "bacon"}},
	{Seafood, []string{"salmon", "shrimp", "white fish"}},
	{DairyEggs, []string{"eggs", "cheese", "feta", "parmesan", "butter", "milk", "yogurt", "sour cream", "crema"}},
	{GrainsPasta, []string{"rice", "arborio rice", "pasta", "bread", "oats", "quinoa", "tortilla", "corn tortillas", "taco shells", "breadcrumbs", "flour", "croutons"}},
	{CannedJarred, []string{"soy sauce", "olive oil", "vegetable broth", "beef broth", "hummus", "chickpeas", "lentils", "caesar dressing", "lemon tahini dressing", "white wine"}},
	{SpicesSeasons, []string{"cumin", "black pepper", "red pepper flakes"}},
	{Other, []string{"honey", "lemon juice"}},
}

// CategoryOrder lists every category in display order
func CategoryOrder() []string {
	out := make([]string, 0, len(CategoryKeywords))
	for _, c := range CategoryKeywords {
		out = append(out, c.Name)
	}
	return out
}

// Source is the slice of a recipe the list needs
type Source struct {
	ID          string
	Title       string
	Ingredients []string
}

type Item struct {
	Key        string   `json:"key"`
	Ingredient string   `json:"ingredient"`
	Recipes    []string `json:"recipes"`
	Checked    bool     `json:"checked"`
}

type Category struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// List is the grocery list for one plan
type List struct {
	Categories []Category `json:"categories"`
	TotalItems int        `json:"totalItems"`
	Recipes    []string   `json:"recipes"`
}

// Key is the case-insensitive identity of an ingredient line
func Key(ingredient string) string {
	return strings.ToLower(strings.TrimSpace(ingredient))
}

// Categorize returns the category of an ingredient
func Categorize(ingredient string) string {
	lower := Key(ingredient)
	for _, c := range CategoryKeywords {
		for _, kw := range c.Keywords {
			if strings.Contains(lower, kw) || strings.Contains(kw, lower) {
				return c.Name
			}
		}
	}
	return Other
}

// Build collects the ingredients of the recipes referenced by planIDs.
// Recipes are visited in the order given; recipes not on the plan and plan
// ids without a recipe are ignored.
func Build(planIDs []string, recipes []Source) List {
	onPlan := make(map[string]bool, len(planIDs))
	for _, id := range planIDs {
		onPlan[id] = true
	}

	var (
		order  []string
		byKey  = map[string]*Item{}
		titles []string
	)
	for _, r := range recipes {
		if !onPlan[r.ID] {
			continue
		}
		// guard against the same recipe being passed twice
		onPlan[r.ID] = false
		titles = append(titles, r.Title)

		for _, ing := range r.Ingredients {
			key := Key(ing)
			if key == "" {
				continue
			}
			item, ok := byKey[key]
			if !ok {
				item = &Item{Key: key, Ingredient: strings.TrimSpace(ing)}
				byKey[key] = item
				order = append(order, key)
			}
			if !slices.Contains(item.Recipes, r.Title) {
				item.Recipes = append(item.Recipes, r.Title)
			}
		}
	}

	grouped := make(map[string][]Item, len(CategoryKeywords))
	for _, key := range order {
		item := *byKey[key]
		cat := Categorize(item.Ingredient)
		grouped[cat] = append(grouped[cat], item)
	}

	col := collate.New(language.English, collate.IgnoreCase)
	list := List{
		Categories: []Category{},
		TotalItems: len(order),
		Recipes:    titles,
	}
	if list.Recipes == nil {
		list.Recipes = []string{}
	}
	for _, name := range CategoryOrder() {
		items := grouped[name]
		if len(items) == 0 {
			continue
		}
		slices.SortStableFunc(items, func(a, b Item) int {
			if c := col.CompareString(a.Ingredient, b.Ingredient); c != 0 {
				return c
			}
			return strings.Compare(a.Ingredient, b.Ingredient)
		})
		list.Categories = append(list.Categories, Category{Name: name, Items: items})
	}
	return list
}

// WithChecked marks the items whose key is in checked
func (l List) WithChecked(checked []string) List {
	for ci := range l.Categories {
		for ii := range l.Categories[ci].Items {
			item := &l.Categories[ci].Items[ii]
			item.Checked = slices.Contains(checked, item.Key)
		}
	}
	return l
}

// Keys returns every item key on the list
func (l List) Keys() []string {
	keys := make([]string, 0, l.TotalItems)
	for _, c := range l.Categories {
		for _, it := range c.Items {
			keys = append(keys, it.Key)
		}
	}
	return keys
}

// ToggleChecked flips key in the checked set
func ToggleChecked(checked []string, key string) []string {
	key = Key(key)
	if i := slices.Index(checked, key); i >= 0 {
		return slices.Delete(slices.Clone(checked), i, i+1)
	}
	return append(slices.Clone(checked), key)
}

// RetainChecked drops checked keys that are no longer on the list
func RetainChecked(checked []string, l List) []string {
	valid := l.Keys()
	out := make([]string, 0, len(checked))
	for _, k := range checked {
		if slices.Contains(valid, k) {
			out = append(out, k)
		}
	}
	return out
}
