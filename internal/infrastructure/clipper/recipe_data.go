package clipper

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// recipeData is the subset of a schema.org Recipe used for clipping
type recipeData struct {
	Name         string
	Image        string
	Yield        string
	TotalTime    string
	Ingredients  []string
	Instructions []string
}

// Text renders the recipe as plain text for the structurer
func (r recipeData) Text() string {
	var b strings.Builder
	if r.Yield != "" {
		b.WriteString("Servings: " + r.Yield + "\n")
	}
	if r.TotalTime != "" {
		b.WriteString("Total time: " + r.TotalTime + "\n")
	}
	b.WriteString("Ingredients:\n")
	for _, i := range r.Ingredients {
		b.WriteString(i + "\n")
	}
	b.WriteString("Instructions:\n")
	for _, s := range r.Instructions {
		b.WriteString(s + "\n")
	}
	return strings.TrimSpace(b.String())
}

// findRecipeData looks for a schema.org Recipe in the page's JSON-LD blocks
func findRecipeData(doc *goquery.Document) (recipeData, bool) {
	var found recipeData
	ok := false
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v interface{}
		if json.Unmarshal([]byte(s.Text()), &v) != nil {
			return true
		}
		if node := findRecipeNode(v); node != nil {
			found, ok = toRecipeData(node)
		}
		return !ok
	})
	return found, ok
}

func findRecipeNode(v interface{}) map[string]interface{} {
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if n := findRecipeNode(item); n != nil {
				return n
			}
		}
	case map[string]interface{}:
		if isRecipeType(t["@type"]) {
			return t
		}
		if graph, ok := t["@graph"]; ok {
			return findRecipeNode(graph)
		}
	}
	return nil
}

func isRecipeType(v interface{}) bool {
	switch t := v.(type) {
	case string:
		return t == "Recipe"
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

func toRecipeData(node map[string]interface{}) (recipeData, bool) {
	r := recipeData{
		Name:         strings.TrimSpace(str(node["name"])),
		Image:        firstString(node["image"]),
		Yield:        firstString(node["recipeYield"]),
		TotalTime:    str(node["totalTime"]),
		Ingredients:  stringList(node["recipeIngredient"]),
		Instructions: instructions(node["recipeInstructions"]),
	}
	return r, len(r.Ingredients) > 0 || len(r.Instructions) > 0
}

func str(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// firstString reads a string, the first string of a list, or an ImageObject url
func firstString(v interface{}) string {
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if s := firstString(item); s != "" {
				return s
			}
		}
	case map[string]interface{}:
		return str(t["url"])
	default:
		return strings.TrimSpace(str(v))
	}
	return ""
}

func stringList(v interface{}) []string {
	var out []string
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if s := normalizeText(str(item)); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := normalizeText(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// instructions flattens plain strings, HowToStep and HowToSection entries
func instructions(v interface{}) []string {
	var out []string
	switch t := v.(type) {
	case string:
		if s := normalizeText(t); s != "" {
			out = append(out, strings.Split(s, "\n")...)
		}
	case []interface{}:
		for _, item := range t {
			out = append(out, instructions(item)...)
		}
	case map[string]interface{}:
		if items, ok := t["itemListElement"]; ok {
			return instructions(items)
		}
		if s := normalizeText(str(t["text"])); s != "" {
			out = append(out, s)
		}
	}
	return out
}
